package source

import (
	"net/http"
	"path/filepath"
)

// Component keys of the tracked artifacts, also used in version.json.
const (
	GeyserStandaloneComponent = "geyser_standalone"
	GeyserConnectComponent    = "geyser_connect"
	MCXboxBroadcastComponent  = "mcxbox_broadcast"
)

// Artifact filenames under the data directory.
const (
	GeyserStandaloneFilename = "Geyser-Standalone.jar"
	ExtensionsDirname        = "extensions"
	geyserConnectFilename    = "GeyserConnect.jar"
	mcxboxBroadcastFilename  = "MCXboxBroadcastExtension.jar"
)

// Upstream endpoints.
const (
	geyserDownloadBaseURL  = "https://download.geysermc.org"
	mcxboxBroadcastFeedURL = "https://api.github.com/repos/MCXboxBroadcast/Broadcaster/releases/latest"
)

// Defaults returns the compiled-in sources for the three tracked components,
// with artifact destinations resolved under dataDir.
func Defaults(dataDir string, client *http.Client) []Source {
	extensionsDir := filepath.Join(dataDir, ExtensionsDirname)

	return []Source{
		NewBuildSource(
			GeyserStandaloneComponent,
			"geyser",
			"standalone",
			geyserDownloadBaseURL,
			filepath.Join(dataDir, GeyserStandaloneFilename),
			client,
		),
		NewBuildSource(
			GeyserConnectComponent,
			"geyserconnect",
			"geyserconnect",
			geyserDownloadBaseURL,
			filepath.Join(extensionsDir, geyserConnectFilename),
			client,
		),
		NewReleaseSource(
			MCXboxBroadcastComponent,
			mcxboxBroadcastFeedURL,
			mcxboxBroadcastFilename,
			filepath.Join(extensionsDir, mcxboxBroadcastFilename),
			client,
		),
	}
}

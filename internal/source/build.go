package source

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oshokin/geyser-supervisor/internal/logger"
)

// BuildSource tracks a project on a GeyserMC-style download API that exposes
// a strictly increasing build counter. "Newer" means remote build > local
// build under integer comparison; the recorded version is the decimal build
// number.
type BuildSource struct {
	// component is the version-record key.
	component string
	// project is the API project slug (e.g. "geyser").
	project string
	// downloadKey selects the artifact flavor in the downloads map.
	downloadKey string
	// baseURL is the API root, overridable in tests.
	baseURL string
	// targetPath is the absolute artifact destination.
	targetPath string
	// client performs provider API calls.
	client *http.Client
}

// buildResponse mirrors the latest-build endpoint reply.
type buildResponse struct {
	Build     int                      `json:"build"`
	Version   string                   `json:"version"`
	Downloads map[string]buildDownload `json:"downloads"`
}

// buildDownload is one downloadable flavor of a build.
type buildDownload struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

// NewBuildSource creates a source for one project on a build-numbered download API.
func NewBuildSource(component, project, downloadKey, baseURL, targetPath string, client *http.Client) *BuildSource {
	if client == nil {
		client = http.DefaultClient
	}

	return &BuildSource{
		component:   component,
		project:     project,
		downloadKey: downloadKey,
		baseURL:     baseURL,
		targetPath:  targetPath,
		client:      client,
	}
}

// Component returns the version-record key this source tracks.
func (s *BuildSource) Component() string {
	return s.component
}

// TargetPath returns the absolute artifact destination.
func (s *BuildSource) TargetPath() string {
	return s.targetPath
}

// CheckLatest queries the latest build and compares it against the local one.
func (s *BuildSource) CheckLatest(ctx context.Context, localVersion string) (*Descriptor, error) {
	latestURL := fmt.Sprintf("%s/v2/projects/%s/versions/latest/builds/latest", s.baseURL, s.project)

	var remote buildResponse
	if err := getJSON(ctx, s.client, latestURL, &remote); err != nil {
		return nil, err
	}

	// Local values that never parsed as integers count as build 0.
	localBuild, err := strconv.Atoi(localVersion)
	if err != nil {
		localBuild = 0
	}

	if remote.Build <= localBuild {
		logger.DebugKV(ctx, "Component is up to date",
			"component", s.component, "build", localBuild)

		return nil, nil //nolint:nilnil // No update is a valid, non-error outcome.
	}

	download, ok := remote.Downloads[s.downloadKey]
	if !ok || download.SHA256 == "" {
		return nil, fmt.Errorf("%s: no %s download entry: %w",
			s.project, s.downloadKey, ErrMalformedResponse)
	}

	checksum, err := hex.DecodeString(download.SHA256)
	if err != nil {
		return nil, fmt.Errorf("%s: bad sha256 %q: %w",
			s.project, download.SHA256, ErrMalformedResponse)
	}

	downloadURL := fmt.Sprintf("%s/v2/projects/%s/versions/%s/builds/%d/downloads/%s",
		s.baseURL, s.project, remote.Version, remote.Build, s.downloadKey)

	return &Descriptor{
		Component:  s.component,
		Version:    strconv.Itoa(remote.Build),
		URL:        downloadURL,
		Checksum:   checksum,
		TargetPath: s.targetPath,
	}, nil
}

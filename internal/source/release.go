package source

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/oshokin/geyser-supervisor/internal/logger"
)

// ReleaseSource tracks a named asset of a GitHub-style latest release. Tags
// carry no ordering, so any tag different from the local one triggers an
// update, downgrades included.
type ReleaseSource struct {
	// component is the version-record key.
	component string
	// apiURL is the latest-release endpoint.
	apiURL string
	// assetName is the downloadable asset to locate in the release.
	assetName string
	// targetPath is the absolute artifact destination.
	targetPath string
	// client performs provider API calls.
	client *http.Client
}

// releaseResponse mirrors the latest-release endpoint reply.
type releaseResponse struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

// releaseAsset is one downloadable file attached to a release.
type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	// Digest is a combined "algorithm:digest" string when present.
	Digest string `json:"digest"`
}

// digestPrefix is stripped from combined digest strings before hex decoding.
const digestPrefix = "sha256:"

// NewReleaseSource creates a source for one asset of a tag-identified release feed.
func NewReleaseSource(component, apiURL, assetName, targetPath string, client *http.Client) *ReleaseSource {
	if client == nil {
		client = http.DefaultClient
	}

	return &ReleaseSource{
		component:  component,
		apiURL:     apiURL,
		assetName:  assetName,
		targetPath: targetPath,
		client:     client,
	}
}

// Component returns the version-record key this source tracks.
func (s *ReleaseSource) Component() string {
	return s.component
}

// TargetPath returns the absolute artifact destination.
func (s *ReleaseSource) TargetPath() string {
	return s.targetPath
}

// CheckLatest queries the latest release and compares its tag against the local one.
func (s *ReleaseSource) CheckLatest(ctx context.Context, localVersion string) (*Descriptor, error) {
	var remote releaseResponse
	if err := getJSON(ctx, s.client, s.apiURL, &remote); err != nil {
		return nil, err
	}

	if remote.TagName == "" {
		return nil, fmt.Errorf("%s: no tag name: %w", s.apiURL, ErrMalformedResponse)
	}

	if remote.TagName == localVersion {
		logger.DebugKV(ctx, "Component is up to date",
			"component", s.component, "tag", localVersion)

		return nil, nil //nolint:nilnil // No update is a valid, non-error outcome.
	}

	asset, found := findAsset(remote.Assets, s.assetName)
	if !found || asset.BrowserDownloadURL == "" {
		return nil, fmt.Errorf("release %s: no %s asset: %w",
			remote.TagName, s.assetName, ErrMalformedResponse)
	}

	// An absent digest only disables verification; the asset still installs.
	var checksum []byte

	if asset.Digest != "" {
		digest := strings.TrimPrefix(asset.Digest, digestPrefix)

		decoded, err := hex.DecodeString(digest)
		if err != nil {
			return nil, fmt.Errorf("release %s: bad digest %q: %w",
				remote.TagName, asset.Digest, ErrMalformedResponse)
		}

		checksum = decoded
	}

	return &Descriptor{
		Component:  s.component,
		Version:    remote.TagName,
		URL:        asset.BrowserDownloadURL,
		Checksum:   checksum,
		TargetPath: s.targetPath,
	}, nil
}

// findAsset locates one named asset among the release's downloadables.
func findAsset(assets []releaseAsset, name string) (releaseAsset, bool) {
	for _, asset := range assets {
		if asset.Name == name {
			return asset, true
		}
	}

	return releaseAsset{}, false
}

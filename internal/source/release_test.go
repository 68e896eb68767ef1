package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// releaseAPIStub serves a latest-release reply with a single asset.
func releaseAPIStub(t *testing.T, tag, assetName, digest string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w,
			`{"tag_name": %q, "assets": [{"name": %q, "browser_download_url": "https://example.com/dl/%s", "digest": %q}]}`,
			tag, assetName, assetName, digest)
	}))
	t.Cleanup(server.Close)

	return server
}

// TestReleaseSource_DifferentTag verifies any tag difference triggers an update.
func TestReleaseSource_DifferentTag(t *testing.T) {
	t.Parallel()

	sha := sha256.Sum256([]byte("extension"))
	server := releaseAPIStub(t, "v1.3", "MCXboxBroadcastExtension.jar", "sha256:"+hex.EncodeToString(sha[:]))

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "v1.2")
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, "v1.3", desc.Version)
	require.Equal(t, sha[:], desc.Checksum)
	require.Equal(t, "https://example.com/dl/MCXboxBroadcastExtension.jar", desc.URL)
}

// TestReleaseSource_SameTag verifies an identical tag reports no update.
func TestReleaseSource_SameTag(t *testing.T) {
	t.Parallel()

	server := releaseAPIStub(t, "v1.2", "MCXboxBroadcastExtension.jar", "sha256:ab")

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "v1.2")
	require.NoError(t, err)
	require.Nil(t, desc)
}

// TestReleaseSource_DowngradeTag verifies tags carry no ordering: an older tag still installs.
func TestReleaseSource_DowngradeTag(t *testing.T) {
	t.Parallel()

	sha := sha256.Sum256([]byte("extension"))
	server := releaseAPIStub(t, "v1.1", "MCXboxBroadcastExtension.jar", "sha256:"+hex.EncodeToString(sha[:]))

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "v1.2")
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, "v1.1", desc.Version)
}

// TestReleaseSource_MissingAsset verifies an absent asset is flagged malformed.
func TestReleaseSource_MissingAsset(t *testing.T) {
	t.Parallel()

	server := releaseAPIStub(t, "v1.3", "SomethingElse.jar", "sha256:ab")

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "v1.2")
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Nil(t, desc)
}

// TestReleaseSource_AssetWithoutDigest verifies a missing digest only disables verification.
func TestReleaseSource_AssetWithoutDigest(t *testing.T) {
	t.Parallel()

	server := releaseAPIStub(t, "v1.3", "MCXboxBroadcastExtension.jar", "")

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "v1.2")
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Nil(t, desc.Checksum)
}

// TestReleaseSource_BadDigest verifies a malformed digest string is rejected.
func TestReleaseSource_BadDigest(t *testing.T) {
	t.Parallel()

	server := releaseAPIStub(t, "v1.3", "MCXboxBroadcastExtension.jar", "sha256:not-hex")

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	_, err := src.CheckLatest(context.Background(), "v1.2")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

// TestReleaseSource_EmptyTag verifies a reply without a tag is flagged malformed.
func TestReleaseSource_EmptyTag(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"assets": []}`)
	}))
	t.Cleanup(server.Close)

	src := NewReleaseSource("mcxbox_broadcast", server.URL,
		"MCXboxBroadcastExtension.jar", "/data/extensions/MCXboxBroadcastExtension.jar", server.Client())

	_, err := src.CheckLatest(context.Background(), "v1.2")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

// TestDefaults verifies the compiled-in component set and destinations.
func TestDefaults(t *testing.T) {
	t.Parallel()

	sources := Defaults("/data", nil)
	require.Len(t, sources, 3)

	byComponent := make(map[string]Source, len(sources))
	for _, src := range sources {
		byComponent[src.Component()] = src
	}

	require.Contains(t, byComponent, GeyserStandaloneComponent)
	require.Contains(t, byComponent, GeyserConnectComponent)
	require.Contains(t, byComponent, MCXboxBroadcastComponent)

	require.Equal(t, "/data/Geyser-Standalone.jar",
		byComponent[GeyserStandaloneComponent].TargetPath())
	require.Equal(t, "/data/extensions/GeyserConnect.jar",
		byComponent[GeyserConnectComponent].TargetPath())
	require.Equal(t, "/data/extensions/MCXboxBroadcastExtension.jar",
		byComponent[MCXboxBroadcastComponent].TargetPath())
}

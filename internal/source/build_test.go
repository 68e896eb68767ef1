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

// buildAPIStub serves a latest-build reply for any project.
func buildAPIStub(t *testing.T, build int, version, sha string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"build": %d, "version": %q, "downloads": {"standalone": {"name": "Geyser-Standalone.jar", "sha256": %q}}}`,
			build, version, sha)
	}))
	t.Cleanup(server.Close)

	return server
}

// TestBuildSource_NewerBuild verifies remote build 7 against local "5" triggers an update.
func TestBuildSource_NewerBuild(t *testing.T) {
	t.Parallel()

	sha := sha256.Sum256([]byte("artifact"))
	server := buildAPIStub(t, 7, "2.4.2", hex.EncodeToString(sha[:]))

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "5")
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, "geyser_standalone", desc.Component)
	require.Equal(t, "7", desc.Version)
	require.Equal(t, sha[:], desc.Checksum)
	require.Equal(t, "/data/Geyser-Standalone.jar", desc.TargetPath)
	require.Equal(t,
		server.URL+"/v2/projects/geyser/versions/2.4.2/builds/7/downloads/standalone",
		desc.URL)
}

// TestBuildSource_NotNewer verifies equal and older remote builds report no update.
func TestBuildSource_NotNewer(t *testing.T) {
	t.Parallel()

	for _, remoteBuild := range []int{5, 3} {
		server := buildAPIStub(t, remoteBuild, "2.4.2", "ab")

		src := NewBuildSource("geyser_standalone", "geyser", "standalone",
			server.URL, "/data/Geyser-Standalone.jar", server.Client())

		desc, err := src.CheckLatest(context.Background(), "5")
		require.NoError(t, err)
		require.Nil(t, desc)
	}
}

// TestBuildSource_UnknownLocalVersion verifies a never-installed component always updates.
func TestBuildSource_UnknownLocalVersion(t *testing.T) {
	t.Parallel()

	sha := sha256.Sum256([]byte("artifact"))
	server := buildAPIStub(t, 1, "2.4.2", hex.EncodeToString(sha[:]))

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "0")
	require.NoError(t, err)
	require.NotNil(t, desc)
	require.Equal(t, "1", desc.Version)
}

// TestBuildSource_MissingDownloadEntry verifies an absent download entry is flagged malformed.
func TestBuildSource_MissingDownloadEntry(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"build": 7, "version": "2.4.2", "downloads": {}}`)
	}))
	t.Cleanup(server.Close)

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", server.Client())

	desc, err := src.CheckLatest(context.Background(), "5")
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Nil(t, desc)
}

// TestBuildSource_UnparseableBody verifies garbage replies are flagged malformed.
func TestBuildSource_UnparseableBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	t.Cleanup(server.Close)

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", server.Client())

	_, err := src.CheckLatest(context.Background(), "5")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

// TestBuildSource_HTTPError verifies transport failures are not classified as malformed.
func TestBuildSource_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", server.Client())

	_, err := src.CheckLatest(context.Background(), "5")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMalformedResponse)
}

// TestBuildSource_UnreachableProvider verifies a dead endpoint surfaces as a transport error.
func TestBuildSource_UnreachableProvider(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	src := NewBuildSource("geyser_standalone", "geyser", "standalone",
		server.URL, "/data/Geyser-Standalone.jar", nil)

	_, err := src.CheckLatest(context.Background(), "5")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMalformedResponse)
}

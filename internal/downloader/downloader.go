package downloader

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/geyser-supervisor/internal/config"
	"github.com/oshokin/geyser-supervisor/internal/logger"
	"github.com/oshokin/geyser-supervisor/internal/source"

	// Ensure SHA256 is available for checksum verification.
	_ "crypto/sha256"
)

// errBadHTTPStatus is returned when the artifact server replies with a non-OK status.
var errBadHTTPStatus = errors.New("unexpected http status")

// checksumFunction verifies downloaded artifacts.
const checksumFunction crypto.Hash = crypto.SHA256

// Downloader fetches remote artifacts and installs them atomically.
type Downloader struct {
	// client performs artifact downloads; it should carry a generous timeout.
	client *http.Client
}

// New creates a Downloader using the provided HTTP client.
func New(client *http.Client) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}

	return &Downloader{client: client}
}

// FetchVerifyInstall downloads the described artifact, verifies its SHA-256
// checksum when one was supplied, and renames it over the destination path.
// The rename is the atomic install point: on any failure the previous
// artifact stays untouched and no staged file survives. Callers persist the
// new version only after this returns nil.
func (d *Downloader) FetchVerifyInstall(ctx context.Context, desc *source.Descriptor) error {
	if err := os.MkdirAll(filepath.Dir(desc.TargetPath), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	logger.InfoKV(ctx, "Downloading artifact",
		"component", desc.Component, "url", desc.URL)

	response, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", desc.URL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", desc.URL, response.Status, errBadHTTPStatus)
	}

	// go-update renames the previous file aside, so the target must exist
	// even on a first install.
	var createdPlaceholder bool

	if _, err = os.Stat(desc.TargetPath); err != nil && os.IsNotExist(err) {
		var placeholder *os.File

		placeholder, err = os.Create(desc.TargetPath)
		if err != nil {
			return fmt.Errorf("create destination: %w", err)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("create destination: %w", err)
		}

		createdPlaceholder = true
	}

	options := goupdate.Options{
		TargetPath: desc.TargetPath,
		TargetMode: config.DefaultFilePermissions,
		Checksum:   desc.Checksum,
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(response.Body, options); err != nil {
		// A first install that failed leaves no empty destination behind.
		if createdPlaceholder {
			_ = os.Remove(desc.TargetPath)
		}

		return fmt.Errorf("install %s: %w", desc.TargetPath, err)
	}

	// Drop the swapped-out previous artifact.
	oldPath := desc.TargetPath + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	logger.InfoKV(ctx, "Artifact installed",
		"component", desc.Component, "path", desc.TargetPath, "version", desc.Version)

	return nil
}

package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/geyser-supervisor/internal/config"
	"github.com/oshokin/geyser-supervisor/internal/logger"
)

// UnknownVersion is reported for components that were never installed.
// Numeric providers parse it as build 0; tag providers treat it as
// "different from any real tag".
const UnknownVersion = "0"

// Repository defines persistence operations for installed component versions.
type Repository interface {
	// Get returns the stored version for the component key.
	// Absence of the store, the key, or a readable document yields UnknownVersion.
	Get(ctx context.Context, key string) string
	// Set records the version for the component key, creating the store if needed.
	Set(ctx context.Context, key, version string) error
}

// FileRepository persists component versions as a flat JSON object on disk.
// The document is read fully and rewritten fully on each update; the write
// goes to a colocated temporary file first and is renamed into place, so a
// reader never observes a partially-written store.
type FileRepository struct {
	// path is the filesystem location of the JSON version file.
	path string
	// mu serializes access to the version file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Get returns the stored version for key, or UnknownVersion when absent.
func (r *FileRepository) Get(ctx context.Context, key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)

	version, ok := doc[key]
	if !ok || version == "" {
		return UnknownVersion
	}

	return version
}

// Set loads the current document, assigns the key and writes the whole
// document back atomically.
func (r *FileRepository) Set(ctx context.Context, key, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.load(ctx)
	doc[key] = version

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode version record: %w", err)
	}

	temporaryPath := r.path + ".tmp"
	if err = os.WriteFile(temporaryPath, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write version record: %w", err)
	}

	if err = os.Rename(temporaryPath, r.path); err != nil {
		_ = os.Remove(temporaryPath)

		return fmt.Errorf("replace version record: %w", err)
	}

	return nil
}

// load reads the full document. A missing file is a valid empty store;
// an unreadable or corrupt one is logged and treated as empty so the next
// Set rewrites it from scratch.
func (r *FileRepository) load(ctx context.Context) map[string]string {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to read version record, starting fresh",
				"path", r.path, "error", err)
		}

		return make(map[string]string)
	}

	doc := make(map[string]string)
	if err = json.Unmarshal(contents, &doc); err != nil {
		logger.WarnKV(ctx, "Version record is corrupted, starting fresh",
			"path", r.path, "error", err)

		return make(map[string]string)
	}

	return doc
}

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrMalformedResponse marks provider replies that parsed as transport
	// successes but are missing expected fields. The control loop logs these
	// distinctly from plain transport failures; both count as "no update".
	ErrMalformedResponse = errors.New("malformed provider response")

	// errBadHTTPStatus is returned for non-OK provider responses.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// Descriptor describes a remote artifact newer than the installed one.
// It exists only within one polling cycle and is never persisted.
type Descriptor struct {
	// Component is the version-record key of the artifact.
	Component string
	// Version is the remote version identifier to record after install.
	Version string
	// URL is the artifact download location.
	URL string
	// Checksum is the expected SHA-256 digest; nil skips verification.
	Checksum []byte
	// TargetPath is the absolute destination of the artifact.
	TargetPath string
}

// Source checks one upstream provider for a newer build of one component.
// Implementations own their version-comparison semantics; the control loop
// only needs "is there an update, and if so what do I download".
type Source interface {
	// Component returns the version-record key this source tracks.
	Component() string
	// TargetPath returns the absolute artifact destination.
	TargetPath() string
	// CheckLatest issues one read request to the provider and returns a fully
	// populated Descriptor when a newer version exists, or nil when the
	// component is current. Errors wrap ErrMalformedResponse when the reply
	// parsed but lacked expected fields.
	CheckLatest(ctx context.Context, localVersion string) (*Descriptor, error)
}

// getJSON issues a single GET and decodes the JSON reply into out.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}

	if len(data) == 0 {
		return fmt.Errorf("%s: empty body: %w", url, ErrMalformedResponse)
	}

	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %v: %w", url, err, ErrMalformedResponse)
	}

	return nil
}

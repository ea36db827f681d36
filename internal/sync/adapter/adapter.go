// Package adapter implements the platform-specific push logic behind
// environment synchronization. Every adapter receives the full decrypted
// variable snapshot and reports a structured result; partial failures are
// accumulated per variable, never returned as errors.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/allisson/envsync/internal/errors"
	"github.com/allisson/envsync/internal/sync/domain"
)

// Credentials is the decrypted platform credentials map.
type Credentials map[string]string

// Adapter pushes environment variables to one platform type.
type Adapter interface {
	// Platform returns the platform type this adapter serves.
	Platform() domain.PlatformType

	// Authenticate verifies the credentials against the platform API.
	Authenticate(ctx context.Context, creds Credentials) error

	// TestConnection verifies the credentials can reach the target resource.
	TestConnection(ctx context.Context, creds Credentials, targetResource string) error

	// PushVariables writes the full variable snapshot to the target
	// resource. The returned result always describes the outcome; the
	// error return is reserved for context cancellation.
	PushVariables(ctx context.Context, creds Credentials, targetResource string, vars []domain.EnvVar) (*domain.SyncResult, error)
}

// Options tune the shared adapter behavior.
type Options struct {
	// HTTPClient is used for all platform API calls. A nil client gets a
	// 30s timeout default.
	HTTPClient *http.Client

	// HerokuBaseURL and VercelBaseURL override the platform API hosts,
	// mainly for tests.
	HerokuBaseURL string
	VercelBaseURL string

	// RequestsPerSecond caps the per-variable API call rate. Zero means
	// the platform default.
	RequestsPerSecond float64
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// NewAdapter returns the adapter for the platform type. The set of supported
// platforms is closed; unknown types fail with ErrUnknownPlatform.
func NewAdapter(platform domain.PlatformType, opts Options) (Adapter, error) {
	switch platform {
	case domain.PlatformHeroku:
		return newHerokuAdapter(opts), nil
	case domain.PlatformVercel:
		return newVercelAdapter(opts), nil
	default:
		return nil, errors.Wrap(domain.ErrUnknownPlatform, fmt.Sprintf("platform %q", platform))
	}
}

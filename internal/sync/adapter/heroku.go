package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/allisson/envsync/internal/errors"
	"github.com/allisson/envsync/internal/sync/domain"
)

const defaultHerokuBaseURL = "https://api.heroku.com"

// herokuAdapter pushes variables through a whole-object config API: the
// current config is fetched, merged with the snapshot and written back in a
// single PATCH. There are no per-variable failures; any API error fails the
// whole batch.
type herokuAdapter struct {
	client  *http.Client
	baseURL string
}

func newHerokuAdapter(opts Options) *herokuAdapter {
	baseURL := opts.HerokuBaseURL
	if baseURL == "" {
		baseURL = defaultHerokuBaseURL
	}
	return &herokuAdapter{client: opts.client(), baseURL: baseURL}
}

func (a *herokuAdapter) Platform() domain.PlatformType {
	return domain.PlatformHeroku
}

func (a *herokuAdapter) Authenticate(ctx context.Context, creds Credentials) error {
	resp, err := a.do(ctx, creds, http.MethodGet, "/account", nil)
	if err != nil {
		return errors.Wrap(domain.ErrAuthenticationFailed, err.Error())
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(domain.ErrAuthenticationFailed, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (a *herokuAdapter) TestConnection(ctx context.Context, creds Credentials, targetResource string) error {
	_, err := a.fetchConfig(ctx, creds, targetResource)
	return err
}

func (a *herokuAdapter) PushVariables(ctx context.Context, creds Credentials, targetResource string, vars []domain.EnvVar) (*domain.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := a.fetchConfig(ctx, creds, targetResource)
	if err != nil {
		return domain.ErrorFor(err), nil
	}

	// Merge on top of the existing config so platform-managed entries
	// survive the write.
	for _, v := range vars {
		config[v.Key] = v.Value
	}

	body, err := json.Marshal(config)
	if err != nil {
		return domain.ErrorFor(err), nil
	}

	resp, err := a.do(ctx, creds, http.MethodPatch, "/apps/"+targetResource+"/config-vars", bytes.NewReader(body))
	if err != nil {
		return domain.ErrorFor(err), nil
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return domain.ErrorFor(fmt.Errorf("config update failed with status %d", resp.StatusCode)), nil
	}

	return &domain.SyncResult{Success: true, SyncedCount: len(vars)}, nil
}

func (a *herokuAdapter) fetchConfig(ctx context.Context, creds Credentials, app string) (map[string]string, error) {
	resp, err := a.do(ctx, creds, http.MethodGet, "/apps/"+app+"/config-vars", nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.Wrap(domain.ErrAuthenticationFailed, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("config fetch failed with status %d", resp.StatusCode)
	}

	config := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config response")
	}
	return config, nil
}

func (a *herokuAdapter) do(ctx context.Context, creds Credentials, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+creds["api_key"])
	req.Header.Set("Accept", "application/vnd.heroku+json; version=3")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.client.Do(req)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/allisson/envsync/internal/errors"
	"github.com/allisson/envsync/internal/sync/domain"
)

const (
	defaultVercelBaseURL = "https://api.vercel.com"

	// defaultVercelRate stays under the platform write limit.
	defaultVercelRate = 8.0
)

// vercelAdapter pushes variables through a per-variable API: each variable
// is created individually, falling back to an update when the key already
// exists. Failures are accumulated per variable so one bad key does not
// block the rest of the batch.
type vercelAdapter struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type vercelEnvVar struct {
	ID     string   `json:"id,omitempty"`
	Key    string   `json:"key"`
	Value  string   `json:"value"`
	Type   string   `json:"type"`
	Target []string `json:"target"`
}

type vercelEnvList struct {
	Envs []vercelEnvVar `json:"envs"`
}

func newVercelAdapter(opts Options) *vercelAdapter {
	baseURL := opts.VercelBaseURL
	if baseURL == "" {
		baseURL = defaultVercelBaseURL
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = defaultVercelRate
	}
	return &vercelAdapter{
		client:  opts.client(),
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (a *vercelAdapter) Platform() domain.PlatformType {
	return domain.PlatformVercel
}

func (a *vercelAdapter) Authenticate(ctx context.Context, creds Credentials) error {
	resp, err := a.do(ctx, creds, http.MethodGet, "/v2/user", nil)
	if err != nil {
		return errors.Wrap(domain.ErrAuthenticationFailed, err.Error())
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(domain.ErrAuthenticationFailed, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (a *vercelAdapter) TestConnection(ctx context.Context, creds Credentials, targetResource string) error {
	_, err := a.listEnvVars(ctx, creds, targetResource)
	return err
}

func (a *vercelAdapter) PushVariables(ctx context.Context, creds Credentials, targetResource string, vars []domain.EnvVar) (*domain.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The existing list resolves ids for the update fallback. Failing here
	// fails the whole batch since nothing was attempted yet.
	existing, err := a.listEnvVars(ctx, creds, targetResource)
	if err != nil {
		return domain.ErrorFor(err), nil
	}
	existingIDs := make(map[string]string, len(existing))
	for _, env := range existing {
		existingIDs[env.Key] = env.ID
	}

	result := &domain.SyncResult{Success: true}
	for _, v := range vars {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := a.pushOne(ctx, creds, targetResource, v, existingIDs); err != nil {
			result.Success = false
			result.Errors = append(result.Errors, domain.SyncError{VariableKey: v.Key, Message: err.Error()})
			continue
		}
		result.SyncedCount++
	}
	return result, nil
}

func (a *vercelAdapter) pushOne(ctx context.Context, creds Credentials, project string, v domain.EnvVar, existingIDs map[string]string) error {
	status, err := a.createEnvVar(ctx, creds, project, v)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return nil
	case status == http.StatusConflict:
		id, ok := existingIDs[v.Key]
		if !ok {
			return fmt.Errorf("variable already exists but its id could not be resolved")
		}
		return a.updateEnvVar(ctx, creds, project, id, v)
	default:
		return fmt.Errorf("create failed with status %d", status)
	}
}

func (a *vercelAdapter) createEnvVar(ctx context.Context, creds Credentials, project string, v domain.EnvVar) (int, error) {
	body, err := json.Marshal(vercelEnvVar{
		Key:    v.Key,
		Value:  v.Value,
		Type:   "encrypted",
		Target: []string{"production", "preview", "development"},
	})
	if err != nil {
		return 0, err
	}

	resp, err := a.do(ctx, creds, http.MethodPost, "/v10/projects/"+project+"/env", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	drainAndClose(resp.Body)
	return resp.StatusCode, nil
}

func (a *vercelAdapter) updateEnvVar(ctx context.Context, creds Credentials, project, id string, v domain.EnvVar) error {
	body, err := json.Marshal(map[string]string{"value": v.Value})
	if err != nil {
		return err
	}

	resp, err := a.do(ctx, creds, http.MethodPatch, "/v9/projects/"+project+"/env/"+id, bytes.NewReader(body))
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update failed with status %d", resp.StatusCode)
	}
	return nil
}

func (a *vercelAdapter) listEnvVars(ctx context.Context, creds Credentials, project string) ([]vercelEnvVar, error) {
	resp, err := a.do(ctx, creds, http.MethodGet, "/v9/projects/"+project+"/env", nil)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.Wrap(domain.ErrAuthenticationFailed, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("variable listing failed with status %d", resp.StatusCode)
	}

	var list vercelEnvList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, errors.Wrap(err, "failed to decode variable listing")
	}
	return list.Envs, nil
}

func (a *vercelAdapter) do(ctx context.Context, creds Credentials, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+creds["token"])
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.client.Do(req)
}

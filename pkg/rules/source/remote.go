package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/compress"
)

// RemoteSource loads rules from the remote catalog API. Each LoadAll,
// LoadOne, and CheckVersions call issues exactly one HTTP request.
type RemoteSource struct {
	config *config.RemoteSourceConfig
	client *http.Client
	logger *slog.Logger
}

// catalogRule is the wire representation of a rule in the catalog API.
type catalogRule struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	Tags         []string  `json:"tags"`
	LastModified time.Time `json:"lastModified"`
	Enabled      *bool     `json:"enabled"`

	// Content is the base64-encoded compiled payload.
	Content string `json:"content"`
}

// catalogResponse is the response body of the rules listing endpoint.
type catalogResponse struct {
	Rules []catalogRule `json:"rules"`
}

// versionsResponse is the response body of the version-check endpoint.
type versionsResponse struct {
	Versions map[string]string `json:"versions"`
}

// NewRemote creates a remote catalog source with connection pooling.
func NewRemote(cfg *config.RemoteSourceConfig, logger *slog.Logger) (*RemoteSource, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, &config.ConfigError{Section: "source", Field: "remote.base_url", Message: "base URL is required"}
	}
	if cfg.ProjectID == "" {
		return nil, &config.ConfigError{Section: "source", Field: "remote.project_id", Message: "project ID is required"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &RemoteSource{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("source", "remote"),
	}, nil
}

// LoadAll fetches the full rule catalog for the configured project.
func (s *RemoteSource) LoadAll(ctx context.Context) (map[string]*rules.Entry, error) {
	url := fmt.Sprintf("%s/projects/%s/rules", s.config.BaseURL, s.config.ProjectID)

	body, err := s.get(ctx, "load_all", url)
	if err != nil {
		return nil, err
	}

	var catalog catalogResponse
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: "load_all",
			Message:   "malformed catalog response",
			Cause:     err,
		}
	}

	entries := make(map[string]*rules.Entry, len(catalog.Rules))
	for _, cr := range catalog.Rules {
		entry, err := s.toEntry("load_all", &cr)
		if err != nil {
			return nil, err
		}
		entries[entry.Metadata.ID] = entry
	}

	s.logger.Debug("catalog loaded", "rules", len(entries))
	return entries, nil
}

// LoadOne fetches a single rule by ID.
func (s *RemoteSource) LoadOne(ctx context.Context, ruleID string) (*rules.Entry, error) {
	url := fmt.Sprintf("%s/projects/%s/rules/%s", s.config.BaseURL, s.config.ProjectID, ruleID)

	body, err := s.get(ctx, "load_one", url)
	if err != nil {
		if serr, ok := err.(*Error); ok {
			serr.RuleID = ruleID
		}
		return nil, err
	}

	var cr catalogRule
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: "load_one",
			RuleID:    ruleID,
			Message:   "malformed rule response",
			Cause:     err,
		}
	}

	return s.toEntry("load_one", &cr)
}

// CheckVersions fetches the catalog's current versions and reports
// which of the caller's rules are stale. Rules the catalog no longer
// lists are reported stale as well.
func (s *RemoteSource) CheckVersions(ctx context.Context, known map[string]string) (map[string]bool, error) {
	if len(known) == 0 {
		return map[string]bool{}, nil
	}

	url := fmt.Sprintf("%s/projects/%s/rules/versions", s.config.BaseURL, s.config.ProjectID)

	body, err := s.get(ctx, "check_versions", url)
	if err != nil {
		return nil, err
	}

	var vr versionsResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: "check_versions",
			Message:   "malformed versions response",
			Cause:     err,
		}
	}

	stale := make(map[string]bool, len(known))
	for id, version := range known {
		current, ok := vr.Versions[id]
		stale[id] = !ok || current != version
	}
	return stale, nil
}

// get performs a single GET request and returns the response body.
// Non-2xx responses and transport failures become *Error; 5xx and
// network errors are retryable, 4xx are not.
func (s *RemoteSource) get(ctx context.Context, operation, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			Message:   "failed to build request",
			Cause:     err,
		}
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			Message:   "request failed",
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			Message:   "failed to read response",
			Retryable: true,
			Cause:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			Message:   fmt.Sprintf("catalog returned status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}
	}

	return body, nil
}

// toEntry converts a catalog rule to a cache entry, decoding the
// base64 payload.
func (s *RemoteSource) toEntry(operation string, cr *catalogRule) (*rules.Entry, error) {
	if cr.ID == "" {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			Message:   "catalog rule is missing an ID",
		}
	}

	payload, err := base64.StdEncoding.DecodeString(cr.Content)
	if err != nil {
		return nil, &Error{
			Provider:  "remote",
			Operation: operation,
			RuleID:    cr.ID,
			Message:   "payload is not valid base64",
			Cause:     err,
		}
	}

	enabled := true
	if cr.Enabled != nil {
		enabled = *cr.Enabled
	}

	return &rules.Entry{
		Metadata: rules.Metadata{
			ID:           cr.ID,
			Version:      cr.Version,
			Tags:         cr.Tags,
			LastModified: cr.LastModified,
			Enabled:      enabled,
		},
		Payload:      payload,
		Compression:  compress.None,
		OriginalSize: len(payload),
	}, nil
}

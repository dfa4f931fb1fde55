package source

import (
	"context"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"quorum-hq/arbiter/pkg/config"
	"quorum-hq/arbiter/pkg/rules"
	"quorum-hq/arbiter/pkg/rules/compress"
)

// LocalSource loads rules from a directory tree. Rule IDs are derived
// from the path relative to the root, with separators normalized to
// forward slashes regardless of host OS, and the extension stripped:
// <root>/pricing/volume.json becomes "pricing/volume".
//
// A sidecar file <rule>.meta.json, when present, overrides the derived
// version, tags, and enabled flag.
type LocalSource struct {
	config *config.LocalSourceConfig
	root   string
	logger *slog.Logger

	// statCache avoids redundant stat syscalls during version checks.
	statMu    sync.Mutex
	statCache map[string]statResult
}

// statResult is a cached filesystem stat outcome.
type statResult struct {
	version string
	exists  bool
	fetched time.Time
}

// metaFile is the sidecar metadata file format.
type metaFile struct {
	Version      string    `json:"version"`
	Tags         []string  `json:"tags"`
	LastModified time.Time `json:"lastModified"`
	Enabled      *bool     `json:"enabled"`
}

// NewLocal creates a local directory source. The root does not need to
// exist yet; loads simply find no rules until it does.
func NewLocal(cfg *config.LocalSourceConfig, logger *slog.Logger) (*LocalSource, error) {
	if cfg == nil || cfg.Root == "" {
		return nil, &config.ConfigError{Section: "source", Field: "local.root", Message: "root directory is required"}
	}
	if cfg.Extension == "" || !strings.HasPrefix(cfg.Extension, ".") {
		return nil, &config.ConfigError{Section: "source", Field: "local.extension", Message: "extension must start with a dot"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, &config.ConfigError{Section: "source", Field: "local.root", Message: "root cannot be resolved: " + err.Error()}
	}

	return &LocalSource{
		config:    cfg,
		root:      root,
		logger:    logger.With("source", "local"),
		statCache: make(map[string]statResult),
	}, nil
}

// LoadAll scans the root recursively and loads every rule file.
func (s *LocalSource) LoadAll(ctx context.Context) (map[string]*rules.Entry, error) {
	entries := make(map[string]*rules.Entry)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				// Missing root means an empty rule set, not a failure.
				return filepath.SkipAll
			}
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !s.isRuleFile(path) {
			return nil
		}

		entry, err := s.loadFile(path)
		if err != nil {
			return err
		}
		entries[entry.Metadata.ID] = entry
		return nil
	})
	if err != nil {
		if serr, ok := err.(*Error); ok {
			return nil, serr
		}
		return nil, &Error{
			Provider:  "local",
			Operation: "load_all",
			Message:   "directory scan failed",
			Cause:     err,
		}
	}

	s.logger.Debug("directory scanned", "root", s.root, "rules", len(entries))
	return entries, nil
}

// LoadOne loads a single rule by ID.
func (s *LocalSource) LoadOne(ctx context.Context, ruleID string) (*rules.Entry, error) {
	path, err := s.resolve(ruleID)
	if err != nil {
		return nil, err
	}

	entry, err := s.loadFile(path)
	if err != nil {
		if serr, ok := err.(*Error); ok {
			serr.Operation = "load_one"
			serr.RuleID = ruleID
		}
		return nil, err
	}
	return entry, nil
}

// CheckVersions stats each known rule file and reports staleness.
// Stat results are cached for the configured TTL so rapid successive
// sweeps do not hammer the filesystem. Deleted rules report stale.
func (s *LocalSource) CheckVersions(ctx context.Context, known map[string]string) (map[string]bool, error) {
	stale := make(map[string]bool, len(known))

	for id, version := range known {
		if ctx.Err() != nil {
			return nil, &Error{
				Provider:  "local",
				Operation: "check_versions",
				Message:   "cancelled",
				Retryable: true,
				Cause:     ctx.Err(),
			}
		}

		current, exists := s.statVersion(id)
		stale[id] = !exists || current != version
	}

	return stale, nil
}

// statVersion returns the current version marker for a rule, consulting
// the stat cache first.
func (s *LocalSource) statVersion(ruleID string) (string, bool) {
	s.statMu.Lock()
	cached, ok := s.statCache[ruleID]
	if ok && time.Since(cached.fetched) < s.config.StatTTL {
		s.statMu.Unlock()
		return cached.version, cached.exists
	}
	s.statMu.Unlock()

	result := statResult{fetched: time.Now()}

	path, err := s.resolve(ruleID)
	if err == nil {
		if meta, err := s.readMeta(path); err == nil && meta != nil && meta.Version != "" {
			result.version = meta.Version
			result.exists = true
		} else if info, err := os.Stat(path); err == nil {
			result.version = versionFromModTime(info.ModTime())
			result.exists = true
		}
	}

	s.statMu.Lock()
	s.statCache[ruleID] = result
	s.statMu.Unlock()

	return result.version, result.exists
}

// resolve maps a rule ID to its file path, rejecting IDs that escape
// the root.
func (s *LocalSource) resolve(ruleID string) (string, error) {
	rel := filepath.FromSlash(ruleID) + s.config.Extension
	path := filepath.Join(s.root, rel)

	// filepath.Join cleans the path; a traversal attempt resolves to
	// something outside the root.
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", &Error{
			Provider:  "local",
			Operation: "load_one",
			RuleID:    ruleID,
			Message:   "rule ID escapes the source root",
		}
	}
	return path, nil
}

// isRuleFile reports whether path is a rule definition file: it must
// carry the configured extension and must not be a metadata sidecar.
func (s *LocalSource) isRuleFile(path string) bool {
	if strings.HasSuffix(path, s.config.MetaSuffix) {
		return false
	}
	return strings.HasSuffix(path, s.config.Extension)
}

// loadFile reads a rule file and its optional metadata sidecar.
func (s *LocalSource) loadFile(path string) (*rules.Entry, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{
			Provider:  "local",
			Operation: "load_all",
			Message:   "failed to read rule file",
			Retryable: false,
			Cause:     err,
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{
			Provider:  "local",
			Operation: "load_all",
			Message:   "failed to stat rule file",
			Cause:     err,
		}
	}

	metadata := rules.Metadata{
		ID:           s.deriveID(path),
		Version:      versionFromModTime(info.ModTime()),
		LastModified: info.ModTime(),
		Enabled:      true,
	}

	meta, err := s.readMeta(path)
	if err != nil {
		return nil, err
	}
	if meta != nil {
		if meta.Version != "" {
			metadata.Version = meta.Version
		}
		if meta.Tags != nil {
			metadata.Tags = meta.Tags
		}
		if !meta.LastModified.IsZero() {
			metadata.LastModified = meta.LastModified
		}
		if meta.Enabled != nil {
			metadata.Enabled = *meta.Enabled
		}
	}

	return &rules.Entry{
		Metadata:     metadata,
		Payload:      payload,
		Compression:  compress.None,
		OriginalSize: len(payload),
	}, nil
}

// readMeta reads the metadata sidecar for a rule file. A missing
// sidecar is not an error; a malformed one is.
func (s *LocalSource) readMeta(rulePath string) (*metaFile, error) {
	metaPath := strings.TrimSuffix(rulePath, s.config.Extension) + s.config.MetaSuffix

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{
			Provider:  "local",
			Operation: "load_all",
			Message:   "failed to read metadata file",
			Cause:     err,
		}
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, &Error{
			Provider:  "local",
			Operation: "load_all",
			Message:   "malformed metadata file " + metaPath,
			Cause:     err,
		}
	}
	return &meta, nil
}

// deriveID converts a rule file path to its rule ID.
func (s *LocalSource) deriveID(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, s.config.Extension)
	return filepath.ToSlash(rel)
}

// versionFromModTime derives a monotonic version marker from a file's
// modification time.
func versionFromModTime(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

// Package manager orchestrates the rule pipeline: loading definitions
// from the configured source, compressing payloads into the versioned
// cache, and keeping the cache fresh through filesystem watching and
// version reconciliation.
package manager

// Package compress provides the payload compression codec used by the
// rule cache.
//
// Small payloads (below a configurable threshold) are never compressed,
// and compression that fails to shrink a payload below a configurable
// ratio is discarded in favor of storing the payload as-is. The codec
// keeps running aggregate statistics for the operator surface.
package compress

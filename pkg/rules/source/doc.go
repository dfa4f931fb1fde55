// Package source loads rule definitions from their backing store.
//
// Two interchangeable providers implement the Client contract: a remote
// catalog API and a local directory tree. The provider is selected once
// at construction through New; callers never branch on the source kind
// again. All failures surface as a typed *Error carrying a retryable
// flag, never as raw transport errors.
package source

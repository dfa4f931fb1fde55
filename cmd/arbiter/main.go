// Arbiter is a business-rule evaluation service.
//
// It loads rule definitions from a local directory or a remote catalog,
// caches them with transparent payload compression, keeps the cache
// fresh through filesystem watching and scheduled version checks, and
// evaluates rules behind per-rule circuit breakers with timeouts and
// retries.
//
// Usage:
//
//	# Start the service with the default configuration
//	arbiter run
//
//	# Start with a custom configuration file
//	arbiter run --config /etc/arbiter/config.yaml
//
//	# List the rule catalog
//	arbiter rules list
//
//	# Evaluate rules once and print the results
//	arbiter exec --all --input '{"amount": 250}'
//	arbiter exec --tags pricing,beta --mode parallel
//
//	# Show version information
//	arbiter version
package main

func main() {
	Execute()
}

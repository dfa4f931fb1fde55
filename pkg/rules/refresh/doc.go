// Package refresh runs periodic version reconciliation against the
// rule source on a cron schedule.
package refresh

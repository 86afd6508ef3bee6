// Package jobs contains the scheduled background work: the assignment
// sweep that expires stale rider assignments and dispatches ready orders,
// the retention cleanup for status logs and location history, and the
// eviction pass over the live location cache.
package jobs

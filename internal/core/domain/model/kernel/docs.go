// Package kernel contains the shared value objects of the dispatch domain:
// UUID identifiers and geographic points with the distance and ETA math used
// by rider dispatch. Value objects here are immutable, validated at
// construction, and safe for concurrent use.
package kernel

// Package services provides domain services that orchestrate business
// operations across multiple aggregates. The dispatcher implements the
// deterministic nearest-eligible-rider policy used by automatic assignment.
package services

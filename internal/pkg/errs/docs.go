// Package errs provides standardized error types for the dispatch engine.
// It implements a consistent pattern for error creation, formatting, and
// unwrapping that is used throughout the application.
//
// The package covers the full failure taxonomy of the engine:
//   - ObjectNotFoundError: an entity is absent
//   - ValueIsInvalid/OutOfRange/Required errors: malformed input
//   - InvalidTransitionError: an order status transition outside the graph
//   - InvalidOperationError: a valid state but a disallowed action
//   - ConflictError: a lost optimistic-concurrency race
//   - SignatureInvalidError: a webhook signature mismatch
//   - UpstreamError: a payment-gateway failure or timeout
//   - VersionIsInvalidError: an unusable aggregate version
//
// Each error type follows a consistent pattern:
//   - A sentinel error variable (e.g. ErrObjectNotFound)
//   - A struct type with fields for error details
//   - Constructor functions with and without cause
//   - Error() method for formatting the error message
//   - Unwrap() method so errors.Is classifies against the sentinel
//
// The API layer maps the sentinels to HTTP statuses; the core never
// inspects error strings.
package errs

package cache

// SentinelError is an error.
type SentinelError string

const (
	// ErrNothingToInvalidate indicates no callbacks were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates recent invalidation.
	ErrAlreadyInvalidated = SentinelError("already invalidated")

	// ErrRevalidationTimeout indicates background refresh did not finish in time.
	ErrRevalidationTimeout = SentinelError("revalidation timed out")

	// ErrTypesMismatch indicates dump was made with a different set of registered types.
	ErrTypesMismatch = SentinelError("cached types mismatch")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}

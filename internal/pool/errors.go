package pool

import "errors"

// None of these are fatal. Callers treat ErrExhausted and ErrNotBuilt as
// "try again next tick"; the rest are logged where they happen.
var (
	// ErrUnresolved means the prototype key/path could not be resolved.
	ErrUnresolved = errors.New("pool: prototype unresolved")
	// ErrExhausted means a non-growable pool has no free instance.
	ErrExhausted = errors.New("pool: no instance available")
	// ErrNotBuilt means the handle was requested but its pool is not built yet.
	ErrNotBuilt = errors.New("pool: not built")
	// ErrInvalidHandle means the pool behind a handle was torn down.
	ErrInvalidHandle = errors.New("pool: invalid handle")
	// ErrForeignInstance means Release got an instance that is not in use by the pool.
	ErrForeignInstance = errors.New("pool: instance not in use")
	// ErrUnknownPool means no registry entry exists for the key.
	ErrUnknownPool = errors.New("pool: unknown pool")
)

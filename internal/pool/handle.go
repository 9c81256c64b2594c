package pool

import "go.uber.org/zap"

// Handle is the spawner-facing reference to a pool. It can be obtained before
// the pool is built; once the pool is torn down it stays inert for good.
type Handle struct {
	key  Key
	name string
	pool *ObjectPool
	err  error
	log  *zap.Logger

	invalid bool
}

func newHandle(key Key, name string, log *zap.Logger) *Handle {
	return &Handle{key: key, name: name, log: log}
}

func (h *Handle) Key() Key     { return h.key }
func (h *Handle) Name() string { return h.name }

// Ready reports whether a live pool is assigned.
func (h *Handle) Ready() bool { return !h.invalid && h.pool != nil }

// Valid is false once Invalidate has been called.
func (h *Handle) Valid() bool { return !h.invalid }

// Invalidate detaches the handle from its pool permanently.
func (h *Handle) Invalidate() {
	h.invalid = true
	h.pool = nil
}

func (h *Handle) Acquire(activate bool) (*Instance, error) {
	p, err := h.target()
	if err != nil {
		return nil, err
	}
	return p.Acquire(activate)
}

func (h *Handle) Release(inst *Instance) error {
	p, err := h.target()
	if err != nil {
		return err
	}
	return p.Release(inst)
}

func (h *Handle) Resize(n int) error {
	p, err := h.target()
	if err != nil {
		return err
	}
	return p.Resize(n)
}

// Size is 0 for a handle without a live pool.
func (h *Handle) Size() int {
	if !h.Ready() {
		return 0
	}
	return h.pool.Size()
}

func (h *Handle) target() (*ObjectPool, error) {
	if h.invalid {
		h.log.Warn("operation on invalidated pool handle", zap.String("prototype", h.name))
		return nil, ErrInvalidHandle
	}
	if h.pool == nil {
		if h.err != nil {
			return nil, h.err
		}
		return nil, ErrNotBuilt
	}
	return h.pool, nil
}

func (h *Handle) assign(p *ObjectPool) {
	if h.invalid {
		return
	}
	h.pool = p
	h.err = nil
	p.attach(h)
}

func (h *Handle) fail(err error) {
	h.err = err
}

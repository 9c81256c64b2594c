package ecs

// EntityID packs a 32-bit slot index (low bits) and a 32-bit generation (high bits).
// Destroying an entity bumps the generation of its slot, so every ID handed out
// before the destroy stops being Alive even after the slot is reused.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityPool allocates entity IDs from a free list of recycled slots.
// Slot 0 generation 0 is never handed out so the zero EntityID means "none".
type EntityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (p *EntityPool) Create() EntityID {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Destroy retires id. Stale or unknown IDs are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Live returns the number of IDs created and not yet destroyed.
func (p *EntityPool) Live() int { return p.live }

package wasm

import (
	"sync"

	"github.com/pulseengine/wrtgo/internal/wasmruntime"
)

// Handle is a generation-tagged reference to a ModuleInstance. The engine
// guarantees a dropped instance's handle cannot observe freed memories:
// Drop bumps the slot's generation, and any later lookup against the
// handle's stale generation fails StaleHandle (spec §3 "Instance",
// §4.6 "Handles are generation-tagged integer indices").
type Handle struct {
	Index      uint32
	Generation uint32
}

type registrySlot struct {
	instance   *ModuleInstance
	generation uint32
	live       bool
}

// InstanceRegistry owns every live ModuleInstance for one Engine. It is
// the sole place a host-held Handle is turned into an instance pointer.
// The engine resolves the Handle once when an invocation or memory access
// starts; interpreter frames then hold the *ModuleInstance pointer
// directly, not a Handle.
type InstanceRegistry struct {
	mu    sync.RWMutex
	slots []registrySlot
	free  []uint32
}

// NewInstanceRegistry constructs an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{}
}

// Register inserts inst and returns a fresh Handle for it.
func (r *InstanceRegistry) Register(inst *ModuleInstance) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		slot := &r.slots[idx]
		slot.instance = inst
		slot.live = true
		return Handle{Index: idx, Generation: slot.generation}
	}
	r.slots = append(r.slots, registrySlot{instance: inst, live: true})
	return Handle{Index: uint32(len(r.slots) - 1), Generation: 0}
}

// Resolve looks up h, failing ErrStaleHandle if it was dropped or its
// generation no longer matches (use-after-free detection).
func (r *InstanceRegistry) Resolve(h Handle) (*ModuleInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(h.Index) >= len(r.slots) {
		return nil, wasmruntime.ErrStaleHandle
	}
	slot := &r.slots[h.Index]
	if !slot.live || slot.generation != h.Generation {
		return nil, wasmruntime.ErrStaleHandle
	}
	return slot.instance, nil
}

// Drop invalidates h: the slot's generation is bumped so any outstanding
// copy of h fails Resolve, and the instance pointer is released so the Go
// GC (when present) can reclaim it. The slot's index is recycled by a
// later Register.
func (r *InstanceRegistry) Drop(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(h.Index) >= len(r.slots) {
		return wasmruntime.ErrStaleHandle
	}
	slot := &r.slots[h.Index]
	if !slot.live || slot.generation != h.Generation {
		return wasmruntime.ErrStaleHandle
	}
	slot.live = false
	slot.instance = nil
	slot.generation++
	r.free = append(r.free, h.Index)
	return nil
}

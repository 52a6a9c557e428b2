// Copyright (c) 2025 Erik Kassubek
//
// File: resources.go
// Brief: Resource registry: opaque handles to tracked primitive
//        descriptors, and their lifecycle
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package resources implements the process-wide resource registry: a
// mapping from opaque handles to tracked lock descriptors (mutex,
// rwlock, condvar), with serialized create/destroy and per-descriptor
// fine-grained state.
package resources

import (
	"errors"
	"sync"
	"time"

	"deadlock/internal/types"
	"deadlock/threads"
)

// Errors returned by the resource registry
var (
	ErrUnknownHandle = errors.New("resources: unknown or destroyed handle")
	ErrTypeMismatch  = errors.New("resources: handle is not of the requested variant")
	ErrStillInUse    = errors.New("resources: lock is held or has waiters")
)

// LockID is a process-unique, monotonically assigned identity for a
// tracked lock. Destroyed LockIDs are never reused.
type LockID uint64

// Variant is the kind of primitive a descriptor tracks
type Variant int

// Possible primitive variants
const (
	VariantMutex Variant = iota
	VariantRwLock
	VariantCondvar
)

// Handle is the opaque, externally held reference to a tracked lock.
// It is comparable and safe to copy; it carries no pointer a caller
// could use to bypass the registry.
type Handle struct {
	id      LockID
	variant Variant
}

// Variant returns the kind of primitive a handle refers to
//
// Returns:
//   - Variant: the primitive kind
func (h Handle) Variant() Variant {
	return h.variant
}

// ID returns the internal lock id of a handle. Exposed so the graph
// and detect packages can key wait-for graph edges on it without
// re-resolving the descriptor.
//
// Returns:
//   - LockID: the internal id
func (h Handle) ID() LockID {
	return h.id
}

// waiterKey identifies a single (thread, mutex) condvar waiter entry
type waiterKey = types.Pair[threads.ThreadID, LockID]

// Descriptor is a tracked lock's descriptor: identity, creator, and the
// variant-specific state described in the data model. Each descriptor
// is guarded by its own mutex, not the registry's.
type Descriptor struct {
	mu sync.Mutex

	id        LockID
	variant   Variant
	creator   threads.ThreadID
	createdAt time.Time
	orphaned  bool

	// Mutex / RwLock state
	holder  threads.ThreadID
	held    bool
	readers map[threads.ThreadID]struct{}

	// Condvar state
	waiters map[waiterKey]struct{}

	// Real OS primitives, owned by the descriptor per the data model's
	// ownership note. Condvars have no real primitive of their own: their
	// wait/notify is implemented with per-waiter channels in the
	// primitives package, since a tracked condvar's mutex is supplied
	// per-call rather than bound at creation.
	RealMutex sync.Mutex
	RealRW    sync.RWMutex
}

// ID returns the descriptor's internal lock id
func (d *Descriptor) ID() LockID { return d.id }

// Variant returns the descriptor's primitive kind
func (d *Descriptor) Variant() Variant { return d.variant }

// Creator returns the id of the thread that created this lock
func (d *Descriptor) Creator() threads.ThreadID { return d.creator }

// SetHolder records tid as the exclusive holder (mutex lock, or rwlock
// write lock)
func (d *Descriptor) SetHolder(tid threads.ThreadID) {
	d.mu.Lock()
	d.holder, d.held = tid, true
	d.mu.Unlock()
}

// ClearHolder removes the exclusive holder, if any
func (d *Descriptor) ClearHolder() {
	d.mu.Lock()
	d.held = false
	d.mu.Unlock()
}

// Holder returns the current exclusive holder, if any
//
// Returns:
//   - threads.ThreadID: the holder
//   - bool: true if there is one
func (d *Descriptor) Holder() (threads.ThreadID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.holder, d.held
}

// AddReader records tid as a current reader (rwlock read lock)
func (d *Descriptor) AddReader(tid threads.ThreadID) {
	d.mu.Lock()
	if d.readers == nil {
		d.readers = make(map[threads.ThreadID]struct{})
	}
	d.readers[tid] = struct{}{}
	d.mu.Unlock()
}

// RemoveReader removes tid from the current readers
func (d *Descriptor) RemoveReader(tid threads.ThreadID) {
	d.mu.Lock()
	delete(d.readers, tid)
	d.mu.Unlock()
}

// ReaderCount returns the number of current readers
func (d *Descriptor) ReaderCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.readers)
}

// AddWaiter records a condvar waiter entry (tid, mutexLid)
func (d *Descriptor) AddWaiter(tid threads.ThreadID, mutexLid LockID) {
	d.mu.Lock()
	if d.waiters == nil {
		d.waiters = make(map[waiterKey]struct{})
	}
	d.waiters[types.NewPair(tid, mutexLid)] = struct{}{}
	d.mu.Unlock()
}

// RemoveWaiter removes a condvar waiter entry
func (d *Descriptor) RemoveWaiter(tid threads.ThreadID, mutexLid LockID) {
	d.mu.Lock()
	delete(d.waiters, types.NewPair(tid, mutexLid))
	d.mu.Unlock()
}

// WaiterCount returns the number of current condvar waiters
func (d *Descriptor) WaiterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiters)
}

// inUse reports whether the descriptor currently has any holder,
// reader, or condvar waiter.
func (d *Descriptor) inUse() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held || len(d.readers) > 0 || len(d.waiters) > 0
}

// Registry is the process-wide handle -> descriptor mapping
type Registry struct {
	mu         sync.Mutex
	nextID     uint64
	byHandle   map[LockID]*Descriptor
	byCreator  map[threads.ThreadID]map[LockID]struct{}
}

// NewRegistry creates a new, empty resource registry
//
// Returns:
//   - *Registry: the new registry
func NewRegistry() *Registry {
	return &Registry{
		byHandle:  make(map[LockID]*Descriptor),
		byCreator: make(map[threads.ThreadID]map[LockID]struct{}),
	}
}

// Create allocates a new tracked lock of the given variant, owned by
// creator.
//
// Parameter:
//   - variant Variant: the kind of primitive to create
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - Handle: the new, opaque handle
func (r *Registry) Create(variant Variant, creator threads.ThreadID) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := LockID(r.nextID)

	d := &Descriptor{
		id:        id,
		variant:   variant,
		creator:   creator,
		createdAt: time.Now(),
	}

	r.byHandle[id] = d
	if r.byCreator[creator] == nil {
		r.byCreator[creator] = make(map[LockID]struct{})
	}
	r.byCreator[creator][id] = struct{}{}

	return Handle{id: id, variant: variant}
}

// Resolve returns the descriptor for a handle, failing if it is unknown,
// destroyed, or of the wrong variant.
//
// Parameter:
//   - h Handle: the handle to resolve
//   - want Variant: the expected variant
//
// Returns:
//   - *Descriptor: the descriptor
//   - error: ErrUnknownHandle or ErrTypeMismatch
func (r *Registry) Resolve(h Handle, want Variant) (*Descriptor, error) {
	r.mu.Lock()
	d, ok := r.byHandle[h.id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrUnknownHandle
	}
	if d.variant != want {
		return nil, ErrTypeMismatch
	}
	return d, nil
}

// Destroy removes a handle from the registry. Destroying a lock that is
// held or has waiters is an error, unless force is set (used only by
// creator-thread-exit cleanup, which defers destruction instead of
// erroring).
//
// Parameter:
//   - h Handle: the handle to destroy
//   - force bool: bypass the in-use check (exit-triggered cleanup only)
//
// Returns:
//   - error: ErrUnknownHandle or ErrStillInUse
func (r *Registry) Destroy(h Handle, force bool) error {
	r.mu.Lock()
	d, ok := r.byHandle[h.id]
	r.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}
	if !force && d.inUse() {
		return ErrStillInUse
	}

	r.mu.Lock()
	delete(r.byHandle, h.id)
	if set := r.byCreator[d.creator]; set != nil {
		delete(set, h.id)
		if len(set) == 0 {
			delete(r.byCreator, d.creator)
		}
	}
	r.mu.Unlock()
	return nil
}

// MarkOrphan marks a lock as orphaned (its creator has exited). If the
// lock has no holders, readers, or waiters right now, it is destroyed
// immediately; otherwise destruction is deferred until its last release
// (see ReleaseIfOrphaned).
//
// Parameter:
//   - h Handle: the handle to mark
func (r *Registry) MarkOrphan(h Handle) {
	r.mu.Lock()
	d, ok := r.byHandle[h.id]
	r.mu.Unlock()
	if !ok {
		return
	}

	d.mu.Lock()
	d.orphaned = true
	d.mu.Unlock()

	if !d.inUse() {
		_ = r.Destroy(h, true)
	}
}

// ReleaseIfOrphaned destroys a lock if it has been marked orphaned and
// is no longer in use. Called after every release/unwait on a lock, so
// a lock orphaned while still held is destroyed promptly once its last
// holder or waiter departs.
//
// Parameter:
//   - h Handle: the handle to check
func (r *Registry) ReleaseIfOrphaned(h Handle) {
	r.mu.Lock()
	d, ok := r.byHandle[h.id]
	r.mu.Unlock()
	if !ok {
		return
	}

	d.mu.Lock()
	orphaned := d.orphaned
	d.mu.Unlock()

	if orphaned && !d.inUse() {
		_ = r.Destroy(h, true)
	}
}

// CreatorOf returns the creator thread of a handle
//
// Parameter:
//   - h Handle: the handle to look up
//
// Returns:
//   - threads.ThreadID: the creator
//   - error: ErrUnknownHandle if not found
func (r *Registry) CreatorOf(h Handle) (threads.ThreadID, error) {
	r.mu.Lock()
	d, ok := r.byHandle[h.id]
	r.mu.Unlock()
	if !ok {
		return 0, ErrUnknownHandle
	}
	return d.creator, nil
}

// LocksCreatedBy returns the handles of every still-registered lock
// created by tid.
//
// Parameter:
//   - tid threads.ThreadID: the creator thread
//
// Returns:
//   - []Handle: the handles it created
func (r *Registry) LocksCreatedBy(tid threads.ThreadID) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.byCreator[tid]
	out := make([]Handle, 0, len(set))
	for id := range set {
		d := r.byHandle[id]
		if d == nil {
			continue
		}
		out = append(out, Handle{id: id, variant: d.variant})
	}
	return out
}

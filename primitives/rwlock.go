// Copyright (c) 2025 Erik Kassubek
//
// File: rwlock.go
// Brief: Tracked reader/writer lock, wrapping sync.RWMutex with
//        wait-for graph maintenance
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package primitives

import (
	"deadlock/control"
	"deadlock/graph"
	"deadlock/resources"
	"deadlock/threads"
)

// RwLock is a tracked reader/writer lock. A write request conflicts
// with any current holder; a read request conflicts only with a
// current writer, so concurrent readers never contribute to a cycle
// among themselves.
type RwLock struct {
	engine *Engine
	handle resources.Handle
}

// NewRwLock creates a new tracked reader/writer lock owned by creator.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - *RwLock: the new lock
func (e *Engine) NewRwLock(creator threads.ThreadID) *RwLock {
	h := e.Resources.Create(resources.VariantRwLock, creator)
	return &RwLock{engine: e, handle: h}
}

// Handle returns the rwlock's resource handle
//
// Returns:
//   - resources.Handle: the handle
func (rw *RwLock) Handle() resources.Handle {
	return rw.handle
}

// ReadLock acquires the lock for reading on behalf of tid.
//
// Parameter:
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrAborted, ErrReentrantLock, or a registry error
func (rw *RwLock) ReadLock(tid threads.ThreadID) error {
	if control.IsAborted() {
		return ErrAborted
	}

	d, err := rw.engine.Resources.Resolve(rw.handle, resources.VariantRwLock)
	if err != nil {
		return err
	}

	if holder, held := d.Holder(); held && holder == tid {
		rw.engine.reportSelfCycle(tid, rw.handle.ID(), graph.Shared)
		return ErrReentrantLock
	}

	if !rw.engine.aboutToWait(tid, rw.handle.ID(), graph.Shared) {
		return ErrAborted
	}

	d.RealRW.RLock()

	rw.engine.Graph.OnAcquired(tid, rw.handle.ID(), graph.Shared)
	d.AddReader(tid)
	rw.engine.Threads.AddHeldLock(tid, uint64(rw.handle.ID()), int(graph.Shared))

	return nil
}

// ReadUnlock releases a previously acquired read lock on behalf of tid.
//
// Parameter:
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNotHolder if tid is not a current reader, or a registry
//     error
func (rw *RwLock) ReadUnlock(tid threads.ThreadID) error {
	d, err := rw.engine.Resources.Resolve(rw.handle, resources.VariantRwLock)
	if err != nil {
		return err
	}

	before := d.ReaderCount()
	d.RemoveReader(tid)
	if d.ReaderCount() == before {
		return ErrNotHolder
	}

	d.RealRW.RUnlock()

	rw.engine.Graph.OnReleased(tid, rw.handle.ID(), graph.Shared)
	rw.engine.Threads.RemoveHeldLock(tid, uint64(rw.handle.ID()))
	rw.engine.Resources.ReleaseIfOrphaned(rw.handle)

	return nil
}

// WriteLock acquires the lock for writing on behalf of tid.
//
// Parameter:
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrAborted, ErrReentrantLock, or a registry error
func (rw *RwLock) WriteLock(tid threads.ThreadID) error {
	if control.IsAborted() {
		return ErrAborted
	}

	d, err := rw.engine.Resources.Resolve(rw.handle, resources.VariantRwLock)
	if err != nil {
		return err
	}

	if holder, held := d.Holder(); held && holder == tid {
		rw.engine.reportSelfCycle(tid, rw.handle.ID(), graph.Exclusive)
		return ErrReentrantLock
	}

	if !rw.engine.aboutToWait(tid, rw.handle.ID(), graph.Exclusive) {
		return ErrAborted
	}

	d.RealRW.Lock()

	rw.engine.Graph.OnAcquired(tid, rw.handle.ID(), graph.Exclusive)
	d.SetHolder(tid)
	rw.engine.Threads.AddHeldLock(tid, uint64(rw.handle.ID()), int(graph.Exclusive))

	return nil
}

// WriteUnlock releases a previously acquired write lock on behalf of
// tid.
//
// Parameter:
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNotHolder if tid does not hold the write lock, or a
//     registry error
func (rw *RwLock) WriteUnlock(tid threads.ThreadID) error {
	d, err := rw.engine.Resources.Resolve(rw.handle, resources.VariantRwLock)
	if err != nil {
		return err
	}

	if holder, held := d.Holder(); !held || holder != tid {
		return ErrNotHolder
	}

	d.ClearHolder()
	d.RealRW.Unlock()

	rw.engine.Graph.OnReleased(tid, rw.handle.ID(), graph.Exclusive)
	rw.engine.Threads.RemoveHeldLock(tid, uint64(rw.handle.ID()))
	rw.engine.Resources.ReleaseIfOrphaned(rw.handle)

	return nil
}

// Destroy removes the rwlock from the engine's resource registry. It is
// an error to destroy one that is currently held or has readers, unless
// force is set (thread-exit cleanup only).
//
// Parameter:
//   - force bool: bypass the in-use check
//
// Returns:
//   - error: ErrStillInUse, or a registry error
func (rw *RwLock) Destroy(force bool) error {
	return rw.engine.Resources.Destroy(rw.handle, force)
}

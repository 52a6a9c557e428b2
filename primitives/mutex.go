// Copyright (c) 2025 Erik Kassubek
//
// File: mutex.go
// Brief: Tracked mutex, wrapping sync.Mutex with wait-for graph
//        maintenance
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

// Mutex is a tracked mutual-exclusion lock. Its zero value is not
// usable; create one through Engine.NewMutex.
type Mutex struct {
	engine *Engine
	handle resources.Handle
}

// NewMutex creates a new tracked mutex owned by creator.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - *Mutex: the new mutex
func (e *Engine) NewMutex(creator threads.ThreadID) *Mutex {
	h := e.Resources.Create(resources.VariantMutex, creator)
	return &Mutex{engine: e, handle: h}
}

// Handle returns the mutex's resource handle, used by detect to key the
// public API's lookups.
//
// Returns:
//   - resources.Handle: the handle
func (m *Mutex) Handle() resources.Handle {
	return m.handle
}

// Lock acquires the mutex on behalf of tid. If the acquisition would
// close a cycle in the wait-for graph, the cycle is reported before the
// call either blocks or returns ErrAborted immediately, depending on the
// engine's reporter (BlockAfterReport). Re-locking a mutex tid already
// holds reports the trivial one-thread cycle [tid] the same way, then
// returns ErrReentrantLock without touching the real mutex.
//
// Parameter:
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrReentrantLock, ErrAborted if the detector was aborted,
//     or a registry error
func (m *Mutex) Lock(tid threads.ThreadID) error {
	if control.IsAborted() {
		return ErrAborted
	}

	d, err := m.engine.Resources.Resolve(m.handle, resources.VariantMutex)
	if err != nil {
		return err
	}

	if holder, held := d.Holder(); held && holder == tid {
		m.engine.reportSelfCycle(tid, m.handle.ID(), graph.Exclusive)
		return ErrReentrantLock
	}

	if !m.engine.aboutToWait(tid, m.handle.ID(), graph.Exclusive) {
		return ErrAborted
	}

	d.RealMutex.Lock()

	m.engine.Graph.OnAcquired(tid, m.handle.ID(), graph.Exclusive)
	d.SetHolder(tid)
	m.engine.Threads.AddHeldLock(tid, uint64(m.handle.ID()), int(graph.Exclusive))

	return nil
}

// Unlock releases the mutex on behalf of tid.
//
// Parameter:
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNotHolder if tid does not hold the mutex, or a registry
//     error
func (m *Mutex) Unlock(tid threads.ThreadID) error {
	d, err := m.engine.Resources.Resolve(m.handle, resources.VariantMutex)
	if err != nil {
		return err
	}

	if holder, held := d.Holder(); !held || holder != tid {
		return ErrNotHolder
	}

	d.ClearHolder()
	d.RealMutex.Unlock()

	m.engine.Graph.OnReleased(tid, m.handle.ID(), graph.Exclusive)
	m.engine.Threads.RemoveHeldLock(tid, uint64(m.handle.ID()))
	m.engine.Resources.ReleaseIfOrphaned(m.handle)

	return nil
}

// Destroy removes the mutex from the engine's resource registry. It is
// an error to destroy a mutex that is currently held, unless force is
// set (thread-exit cleanup only).
//
// Parameter:
//   - force bool: bypass the in-use check
//
// Returns:
//   - error: ErrStillInUse, or a registry error
func (m *Mutex) Destroy(force bool) error {
	return m.engine.Resources.Destroy(m.handle, force)
}

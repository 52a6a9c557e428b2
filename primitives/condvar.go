// Copyright (c) 2025 Erik Kassubek
//
// File: condvar.go
// Brief: Tracked condition variable, with atomic mutex release and
//        normal-path reacquisition
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package primitives

import (
	"sync"
	"time"

	"deadlock/control"
	"deadlock/resources"
	"deadlock/threads"
)

// Condvar is a tracked condition variable. Unlike sync.Cond, the mutex
// it suspends on is supplied per call rather than bound at creation,
// matching the pthread-style API the detector exposes. Waiting is
// implemented with a private per-waiter channel rather than sync.Cond,
// since sync.Cond's L must be fixed at construction time.
type Condvar struct {
	engine *Engine
	handle resources.Handle

	mu      sync.Mutex
	waiters map[threads.ThreadID]chan struct{}
}

// NewCondvar creates a new tracked condition variable owned by creator.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - *Condvar: the new condvar
func (e *Engine) NewCondvar(creator threads.ThreadID) *Condvar {
	h := e.Resources.Create(resources.VariantCondvar, creator)
	return &Condvar{engine: e, handle: h, waiters: make(map[threads.ThreadID]chan struct{})}
}

// Handle returns the condvar's resource handle
//
// Returns:
//   - resources.Handle: the handle
func (c *Condvar) Handle() resources.Handle {
	return c.handle
}

// Wait atomically releases mutex and suspends tid on the condvar, then
// reacquires mutex before returning. The release removes mutex's hold
// edge without inserting any wait edge for the condvar itself, since a
// suspended condvar wait never contributes to a cycle; reacquisition
// goes through Mutex.Lock's normal path, so it is fully subject to
// cycle detection.
//
// Parameter:
//   - tid threads.ThreadID: the waiting thread
//   - mutex *Mutex: the mutex to release and later reacquire
//
// Returns:
//   - error: ErrNotMutexHeldForWait, ErrAborted, or a registry error
func (c *Condvar) Wait(tid threads.ThreadID, mutex *Mutex) error {
	return c.wait(tid, mutex, nil)
}

// WaitTimeout behaves like Wait, but returns (false, nil) instead of
// blocking indefinitely if notified after timeout elapses. The mutex is
// reacquired before returning either way, matching pthread's
// cond_timedwait contract.
//
// Parameter:
//   - tid threads.ThreadID: the waiting thread
//   - mutex *Mutex: the mutex to release and later reacquire
//   - timeout time.Duration: the maximum time to wait
//
// Returns:
//   - bool: true if woken by a notify, false if the timeout elapsed
//   - error: ErrNotMutexHeldForWait, ErrAborted, or a registry error
func (c *Condvar) WaitTimeout(tid threads.ThreadID, mutex *Mutex, timeout time.Duration) (bool, error) {
	woken := true
	err := c.wait(tid, mutex, &timerConfig{timeout: timeout, woken: &woken})
	return woken, err
}

type timerConfig struct {
	timeout time.Duration
	woken   *bool
}

func (c *Condvar) wait(tid threads.ThreadID, mutex *Mutex, timer *timerConfig) error {
	if control.IsAborted() {
		return ErrAborted
	}

	mutexDesc, err := c.engine.Resources.Resolve(mutex.handle, resources.VariantMutex)
	if err != nil {
		return err
	}
	cvDesc, err := c.engine.Resources.Resolve(c.handle, resources.VariantCondvar)
	if err != nil {
		return err
	}

	if holder, held := mutexDesc.Holder(); !held || holder != tid {
		return ErrNotMutexHeldForWait
	}

	ch := make(chan struct{})
	c.mu.Lock()
	c.waiters[tid] = ch
	c.mu.Unlock()

	cvDesc.AddWaiter(tid, mutex.handle.ID())

	// Atomic release: drop the mutex's hold edge and the real lock
	// together, before suspending.
	mutexDesc.ClearHolder()
	mutexDesc.RealMutex.Unlock()
	c.engine.Graph.OnCondvarRelease(tid, mutex.handle.ID())
	c.engine.Threads.RemoveHeldLock(tid, uint64(mutex.handle.ID()))
	c.engine.Resources.ReleaseIfOrphaned(mutex.handle)

	if timer != nil {
		select {
		case <-ch:
		case <-time.After(timer.timeout):
			*timer.woken = false
			c.mu.Lock()
			delete(c.waiters, tid)
			c.mu.Unlock()
		}
	} else {
		<-ch
	}

	cvDesc.RemoveWaiter(tid, mutex.handle.ID())
	c.engine.Resources.ReleaseIfOrphaned(c.handle)

	control.Delay("condvar-reacquire")

	if err := mutex.Lock(tid); err != nil {
		return err
	}
	c.engine.Graph.OnCondvarReacquire(tid, mutex.handle.ID())
	return nil
}

// NotifyOne wakes one waiting thread, chosen arbitrarily. It is a no-op
// if there are no waiters.
func (c *Condvar) NotifyOne() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tid, ch := range c.waiters {
		close(ch)
		delete(c.waiters, tid)
		return
	}
}

// NotifyAll wakes every currently waiting thread
func (c *Condvar) NotifyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tid, ch := range c.waiters {
		close(ch)
		delete(c.waiters, tid)
	}
}

// Destroy removes the condvar from the engine's resource registry. It
// is an error to destroy one with current waiters, unless force is set
// (thread-exit cleanup only).
//
// Parameter:
//   - force bool: bypass the in-use check
//
// Returns:
//   - error: ErrStillInUse, or a registry error
func (c *Condvar) Destroy(force bool) error {
	return c.engine.Resources.Destroy(c.handle, force)
}

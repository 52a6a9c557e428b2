// Copyright (c) 2025 Erik Kassubek
//
// File: condvar.go
// Brief: Public condition variable API
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package detect

import (
	"time"

	"deadlock/eventlog"
	"deadlock/primitives"
	"deadlock/resources"
	"deadlock/threads"
)

// CreateCondvar creates a new tracked condition variable with no
// attributed creator
//
// Returns:
//   - resources.Handle: the new condvar's handle
//   - error: ErrNotInitialized
func CreateCondvar() (resources.Handle, error) {
	return CreateCondvarWithCreator(0)
}

// CreateCondvarWithCreator creates a new tracked condition variable
// attributed to creator.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - resources.Handle: the new condvar's handle
//   - error: ErrNotInitialized
func CreateCondvarWithCreator(creator threads.ThreadID) (resources.Handle, error) {
	d, err := current()
	if err != nil {
		return resources.Handle{}, err
	}

	c := d.engine.NewCondvar(creator)

	d.mu.Lock()
	d.condvars[c.Handle().ID()] = c
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarCreate,
		Timestamp: time.Now(),
		ThreadID:  uint64(creator),
		LockID:    uint64(c.Handle().ID()),
	})

	return c.Handle(), nil
}

func (d *Detector) lookupCondvar(h resources.Handle) (*primitives.Condvar, error) {
	d.mu.Lock()
	c, ok := d.condvars[h.ID()]
	d.mu.Unlock()
	if !ok {
		return nil, ErrNullHandle
	}
	return c, nil
}

// DestroyCondvar destroys a tracked condition variable. It is an error
// to destroy one that currently has waiters.
//
// Parameter:
//   - h resources.Handle: the condvar to destroy
//
// Returns:
//   - error: ErrNullHandle, ErrStillInUse, or ErrNotInitialized
func DestroyCondvar(h resources.Handle) error {
	d, err := current()
	if err != nil {
		return err
	}

	c, err := d.lookupCondvar(h)
	if err != nil {
		return err
	}

	if err := c.Destroy(false); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.condvars, h.ID())
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarDestroy,
		Timestamp: time.Now(),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// Wait atomically releases mutexHandle and suspends tid on the condvar,
// reacquiring mutexHandle (through the normal, cycle-checked lock path)
// before returning.
//
// Parameter:
//   - h resources.Handle: the condvar to wait on
//   - mutexHandle resources.Handle: the mutex tid currently holds
//   - tid threads.ThreadID: the waiting thread
//
// Returns:
//   - error: ErrNullHandle, ErrMutexNotHeld, ErrAborted, or ErrNotInitialized
func Wait(h resources.Handle, mutexHandle resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	c, err := d.lookupCondvar(h)
	if err != nil {
		return err
	}
	m, err := d.lookupMutex(mutexHandle)
	if err != nil {
		return err
	}
	if err := c.Wait(tid, m); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarWait,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// WaitTimeout behaves like Wait but returns false instead of blocking
// indefinitely once timeout elapses. The mutex is reacquired before
// returning either way.
//
// Parameter:
//   - h resources.Handle: the condvar to wait on
//   - mutexHandle resources.Handle: the mutex tid currently holds
//   - tid threads.ThreadID: the waiting thread
//   - timeout time.Duration: the maximum time to wait
//
// Returns:
//   - bool: true if woken by a notify, false if the timeout elapsed
//   - error: ErrNullHandle, ErrMutexNotHeld, ErrAborted, or ErrNotInitialized
func WaitTimeout(h resources.Handle, mutexHandle resources.Handle, tid threads.ThreadID, timeout time.Duration) (bool, error) {
	d, err := current()
	if err != nil {
		return false, err
	}
	c, err := d.lookupCondvar(h)
	if err != nil {
		return false, err
	}
	m, err := d.lookupMutex(mutexHandle)
	if err != nil {
		return false, err
	}
	woken, err := c.WaitTimeout(tid, m, timeout)
	if err != nil {
		return false, err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarWait,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return woken, nil
}

// NotifyOne wakes one thread waiting on the condvar, chosen arbitrarily
//
// Parameter:
//   - h resources.Handle: the condvar to notify
//
// Returns:
//   - error: ErrNullHandle, or ErrNotInitialized
func NotifyOne(h resources.Handle) error {
	d, err := current()
	if err != nil {
		return err
	}
	c, err := d.lookupCondvar(h)
	if err != nil {
		return err
	}
	c.NotifyOne()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarNotifyOne,
		Timestamp: time.Now(),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// NotifyAll wakes every thread waiting on the condvar
//
// Parameter:
//   - h resources.Handle: the condvar to notify
//
// Returns:
//   - error: ErrNullHandle, or ErrNotInitialized
func NotifyAll(h resources.Handle) error {
	d, err := current()
	if err != nil {
		return err
	}
	c, err := d.lookupCondvar(h)
	if err != nil {
		return err
	}
	c.NotifyAll()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventCondvarNotifyAll,
		Timestamp: time.Now(),
		LockID:    uint64(h.ID()),
	})

	return nil
}

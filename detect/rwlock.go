// Copyright (c) 2025 Erik Kassubek
//
// File: rwlock.go
// Brief: Public reader/writer lock API
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

// CreateRwLock creates a new tracked reader/writer lock with no
// attributed creator
//
// Returns:
//   - resources.Handle: the new lock's handle
//   - error: ErrNotInitialized
func CreateRwLock() (resources.Handle, error) {
	return CreateRwLockWithCreator(0)
}

// CreateRwLockWithCreator creates a new tracked reader/writer lock
// attributed to creator.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - resources.Handle: the new lock's handle
//   - error: ErrNotInitialized
func CreateRwLockWithCreator(creator threads.ThreadID) (resources.Handle, error) {
	d, err := current()
	if err != nil {
		return resources.Handle{}, err
	}

	rw := d.engine.NewRwLock(creator)

	d.mu.Lock()
	d.rwlocks[rw.Handle().ID()] = rw
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockCreate,
		Timestamp: time.Now(),
		ThreadID:  uint64(creator),
		LockID:    uint64(rw.Handle().ID()),
	})

	return rw.Handle(), nil
}

func (d *Detector) lookupRwLock(h resources.Handle) (*primitives.RwLock, error) {
	d.mu.Lock()
	rw, ok := d.rwlocks[h.ID()]
	d.mu.Unlock()
	if !ok {
		return nil, ErrNullHandle
	}
	return rw, nil
}

// DestroyRwLock destroys a tracked reader/writer lock. It is an error
// to destroy one that is currently held or has readers.
//
// Parameter:
//   - h resources.Handle: the lock to destroy
//
// Returns:
//   - error: ErrNullHandle, ErrStillInUse, or ErrNotInitialized
func DestroyRwLock(h resources.Handle) error {
	d, err := current()
	if err != nil {
		return err
	}

	rw, err := d.lookupRwLock(h)
	if err != nil {
		return err
	}

	if err := rw.Destroy(false); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.rwlocks, h.ID())
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockDestroy,
		Timestamp: time.Now(),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// ReadLock acquires a tracked reader/writer lock for reading on behalf
// of tid
//
// Parameter:
//   - h resources.Handle: the lock to acquire
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrNullHandle, ErrReentrantLock, ErrAborted, or ErrNotInitialized
func ReadLock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	rw, err := d.lookupRwLock(h)
	if err != nil {
		return err
	}
	if err := rw.ReadLock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockReadLock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// ReadUnlock releases a previously acquired read lock on behalf of tid
//
// Parameter:
//   - h resources.Handle: the lock to release
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNullHandle, ErrNotHolder, or ErrNotInitialized
func ReadUnlock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	rw, err := d.lookupRwLock(h)
	if err != nil {
		return err
	}
	if err := rw.ReadUnlock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockReadUnlock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// WriteLock acquires a tracked reader/writer lock for writing on behalf
// of tid
//
// Parameter:
//   - h resources.Handle: the lock to acquire
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrNullHandle, ErrReentrantLock, ErrAborted, or ErrNotInitialized
func WriteLock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	rw, err := d.lookupRwLock(h)
	if err != nil {
		return err
	}
	if err := rw.WriteLock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockWriteLock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// WriteUnlock releases a previously acquired write lock on behalf of
// tid
//
// Parameter:
//   - h resources.Handle: the lock to release
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNullHandle, ErrNotHolder, or ErrNotInitialized
func WriteUnlock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	rw, err := d.lookupRwLock(h)
	if err != nil {
		return err
	}
	if err := rw.WriteUnlock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventRwLockWriteUnlock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

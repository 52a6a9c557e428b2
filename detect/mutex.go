// Copyright (c) 2025 Erik Kassubek
//
// File: mutex.go
// Brief: Public mutex API
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

// CreateMutex creates a new tracked mutex with no attributed creator
//
// Returns:
//   - resources.Handle: the new mutex's handle
//   - error: ErrNotInitialized
func CreateMutex() (resources.Handle, error) {
	return CreateMutexWithCreator(0)
}

// CreateMutexWithCreator creates a new tracked mutex attributed to
// creator, so it is cleaned up when creator exits.
//
// Parameter:
//   - creator threads.ThreadID: the creating thread
//
// Returns:
//   - resources.Handle: the new mutex's handle
//   - error: ErrNotInitialized
func CreateMutexWithCreator(creator threads.ThreadID) (resources.Handle, error) {
	d, err := current()
	if err != nil {
		return resources.Handle{}, err
	}

	m := d.engine.NewMutex(creator)

	d.mu.Lock()
	d.mutexes[m.Handle().ID()] = m
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventMutexCreate,
		Timestamp: time.Now(),
		ThreadID:  uint64(creator),
		LockID:    uint64(m.Handle().ID()),
	})

	return m.Handle(), nil
}

// lookupMutex resolves a handle to its tracked mutex
func (d *Detector) lookupMutex(h resources.Handle) (*primitives.Mutex, error) {
	d.mu.Lock()
	m, ok := d.mutexes[h.ID()]
	d.mu.Unlock()
	if !ok {
		return nil, ErrNullHandle
	}
	return m, nil
}

// DestroyMutex destroys a tracked mutex. It is an error to destroy one
// that is currently held.
//
// Parameter:
//   - h resources.Handle: the mutex to destroy
//
// Returns:
//   - error: ErrNullHandle, ErrStillInUse, or ErrNotInitialized
func DestroyMutex(h resources.Handle) error {
	d, err := current()
	if err != nil {
		return err
	}

	m, err := d.lookupMutex(h)
	if err != nil {
		return err
	}

	if err := m.Destroy(false); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.mutexes, h.ID())
	d.mu.Unlock()

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventMutexDestroy,
		Timestamp: time.Now(),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// Lock acquires a tracked mutex on behalf of tid
//
// Parameter:
//   - h resources.Handle: the mutex to acquire
//   - tid threads.ThreadID: the acquiring thread
//
// Returns:
//   - error: ErrNullHandle, ErrReentrantLock, ErrAborted, or ErrNotInitialized
func Lock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	m, err := d.lookupMutex(h)
	if err != nil {
		return err
	}
	if err := m.Lock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventMutexLock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

// Unlock releases a tracked mutex on behalf of tid
//
// Parameter:
//   - h resources.Handle: the mutex to release
//   - tid threads.ThreadID: the releasing thread
//
// Returns:
//   - error: ErrNullHandle, ErrNotHolder, or ErrNotInitialized
func Unlock(h resources.Handle, tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}
	m, err := d.lookupMutex(h)
	if err != nil {
		return err
	}
	if err := m.Unlock(tid); err != nil {
		return err
	}

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventMutexUnlock,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
		LockID:    uint64(h.ID()),
	})

	return nil
}

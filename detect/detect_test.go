// Copyright (c) 2025 Erik Kassubek
//
// File: detect_test.go
// Brief: End-to-end tests for the public detector facade
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package detect

import (
	"sync"
	"testing"
	"time"

	"deadlock/report"
)

func startDetector(t *testing.T, blockAfterReport bool) chan report.Report {
	t.Helper()

	found := make(chan report.Report, 16)
	err := Init(Config{
		BlockAfterReport: blockAfterReport,
		Quiet:            true,
		Callback: func(r report.Report) {
			found <- r
		},
	})
	if err != nil {
		t.Fatalf("failed to init detector: %v", err)
	}
	t.Cleanup(func() { Close() })

	return found
}

func TestInitTwiceFails(t *testing.T) {
	startDetector(t, true)

	if err := Init(Config{}); err != ErrAlreadyInitialized {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestCallsBeforeInitFail(t *testing.T) {
	if _, err := IsDeadlockDetected(); err != ErrNotInitialized {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestMutexRoundTrip(t *testing.T) {
	startDetector(t, true)

	tid, err := RegisterThreadSpawn(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h, err := CreateMutexWithCreator(tid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Lock(h, tid); err != nil {
		t.Fatalf("unexpected error locking: %v", err)
	}
	if err := Unlock(h, tid); err != nil {
		t.Fatalf("unexpected error unlocking: %v", err)
	}
	if err := DestroyMutex(h); err != nil {
		t.Fatalf("unexpected error destroying: %v", err)
	}
}

func TestCrossDeadlockReported(t *testing.T) {
	found := startDetector(t, false)

	m1, _ := CreateMutex()
	m2, _ := CreateMutex()

	t1, _ := RegisterThreadSpawn(0)
	t2, _ := RegisterThreadSpawn(0)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		Lock(m1, t1)
		time.Sleep(20 * time.Millisecond)
		if Lock(m2, t1) == nil {
			Unlock(m2, t1)
		}
		Unlock(m1, t1)
	}()
	go func() {
		defer wg.Done()
		Lock(m2, t2)
		time.Sleep(20 * time.Millisecond)
		if Lock(m1, t2) == nil {
			Unlock(m1, t2)
		}
		Unlock(m2, t2)
	}()

	wg.Wait()

	select {
	case r := <-found:
		if len(r.ThreadCycle) != 2 {
			t.Fatalf("expected a 2-thread cycle in the report, got %d", len(r.ThreadCycle))
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a deadlock report")
	}

	detected, err := IsDeadlockDetected()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !detected {
		t.Fatalf("expected IsDeadlockDetected to be true")
	}

	ResetDeadlockFlag()
	detected, _ = IsDeadlockDetected()
	if detected {
		t.Fatalf("expected flag to be cleared after ResetDeadlockFlag")
	}
}

func TestHeldLockReleasedOnThreadExit(t *testing.T) {
	startDetector(t, true)

	owner, _ := RegisterThreadSpawn(0)
	waiter, _ := RegisterThreadSpawn(0)

	h, _ := CreateMutex()
	if err := Lock(h, owner); err != nil {
		t.Fatalf("unexpected error locking: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- Lock(h, waiter) }()

	time.Sleep(20 * time.Millisecond)

	if err := RegisterThreadExit(owner); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected waiter to acquire the lock after owner exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired the mutex released on owner's exit")
	}

	if err := Unlock(h, waiter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreatorCleanupOnThreadExit(t *testing.T) {
	startDetector(t, true)

	tid, _ := RegisterThreadSpawn(0)
	h, _ := CreateMutexWithCreator(tid)

	creator, err := CreatorOf(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creator != tid {
		t.Fatalf("expected creator %d, got %d", tid, creator)
	}

	if err := RegisterThreadExit(tid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the lock was never held, so it should have been destroyed immediately
	if err := Unlock(h, tid); err != ErrNullHandle {
		t.Fatalf("expected ErrNullHandle for an orphan-destroyed lock, got %v", err)
	}
}

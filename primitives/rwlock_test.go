// Copyright (c) 2025 Erik Kassubek
//
// File: rwlock_test.go
// Brief: Tests for the tracked reader/writer lock
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package primitives

import (
	"sync"
	"testing"
	"time"

	"deadlock/threads"
)

func TestRwLockConcurrentReadersNoCycle(t *testing.T) {
	reporter := &recordingReporter{blockAfter: true}
	e := NewEngine(reporter)
	rw := e.NewRwLock(0)

	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		tid := threads.ThreadID(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rw.ReadLock(tid); err != nil {
				t.Errorf("unexpected error read-locking: %v", err)
				return
			}
			time.Sleep(10 * time.Millisecond)
			rw.ReadUnlock(tid)
		}()
	}
	wg.Wait()

	if len(reporter.cycles) != 0 {
		t.Fatalf("expected no cycles among concurrent readers, got %d", len(reporter.cycles))
	}
}

func TestRwLockWriterWaitsForReaders(t *testing.T) {
	reporter := &recordingReporter{blockAfter: true}
	e := NewEngine(reporter)
	rw := e.NewRwLock(0)

	r1, w := threads.ThreadID(1), threads.ThreadID(2)

	if err := rw.ReadLock(r1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		rw.WriteLock(w)
		rw.WriteUnlock(w)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	rw.ReadUnlock(r1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("writer never acquired the lock after readers released")
	}

	if len(reporter.cycles) != 0 {
		t.Fatalf("expected no cycle, got %d", len(reporter.cycles))
	}
}

func TestRwLockUnlockByNonReader(t *testing.T) {
	reporter := &recordingReporter{blockAfter: true}
	e := NewEngine(reporter)
	rw := e.NewRwLock(0)

	t1, t2 := threads.ThreadID(1), threads.ThreadID(2)
	rw.ReadLock(t1)

	if err := rw.ReadUnlock(t2); err != ErrNotHolder {
		t.Fatalf("expected ErrNotHolder, got %v", err)
	}
}

func TestRwLockReentrantWriteRejected(t *testing.T) {
	reporter := &recordingReporter{blockAfter: true}
	e := NewEngine(reporter)
	rw := e.NewRwLock(0)

	tid := threads.ThreadID(1)
	rw.WriteLock(tid)

	if err := rw.WriteLock(tid); err != ErrReentrantLock {
		t.Fatalf("expected ErrReentrantLock, got %v", err)
	}

	if len(reporter.cycles) != 1 {
		t.Fatalf("expected the self-deadlock to fire the callback, got %d cycles", len(reporter.cycles))
	}
	cycle := reporter.cycles[0]
	if len(cycle.Threads) != 1 || cycle.Threads[0] != tid {
		t.Fatalf("expected thread_cycle = [%d], got %v", tid, cycle.Threads)
	}
}

// Copyright (c) 2025 Erik Kassubek
//
// File: rwlock.go
// Brief: Reader/writer lock scenarios, including ones that must NOT
//        be flagged
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package scenarios

import (
	"time"

	"deadlock/detect"
	"deadlock/threads"
)

// RwLockUpgrade seeds a deadlock where a thread holding a read lock
// tries to acquire the same lock for writing while another thread is
// already queued for the write lock. The read-holder's write request
// conflicts with its own read hold, so the detector reports the
// one-thread cycle [reader]; the queued writer holds nothing, so it is
// not on the reported cycle.
func RwLockUpgrade(timeout time.Duration) {
	rw, _ := detect.CreateRwLock()

	d1 := spawn(func(tid threads.ThreadID) {
		detect.ReadLock(rw, tid)
		time.Sleep(30 * time.Millisecond)
		// Attempts to also take the write lock while still holding the
		// read lock: conflicts with this thread's own read hold.
		if detect.WriteLock(rw, tid) == nil {
			detect.WriteUnlock(rw, tid)
		}
		detect.ReadUnlock(rw, tid)
	})
	d2 := spawn(func(tid threads.ThreadID) {
		time.Sleep(10 * time.Millisecond)
		if detect.WriteLock(rw, tid) == nil {
			detect.WriteUnlock(rw, tid)
		}
	})

	awaitChans([]<-chan struct{}{d1, d2}, timeout)
}

// ConcurrentReaders confirms multiple simultaneous readers never
// trigger a false-positive report: many threads hold the read lock at
// once, none of them waiting on anything.
func ConcurrentReaders(timeout time.Duration) {
	rw, _ := detect.CreateRwLock()
	const n = 8

	dones := make([]<-chan struct{}, n)
	for i := 0; i < n; i++ {
		dones[i] = spawn(func(tid threads.ThreadID) {
			detect.ReadLock(rw, tid)
			time.Sleep(20 * time.Millisecond)
			detect.ReadUnlock(rw, tid)
		})
	}

	awaitChans(dones, timeout)
}

// WriterWaitsForReaders confirms a writer blocked behind live readers
// is not itself a deadlock: the readers release in bounded time, and
// the writer proceeds.
func WriterWaitsForReaders(timeout time.Duration) {
	rw, _ := detect.CreateRwLock()

	r1 := spawn(func(tid threads.ThreadID) {
		detect.ReadLock(rw, tid)
		time.Sleep(40 * time.Millisecond)
		detect.ReadUnlock(rw, tid)
	})
	r2 := spawn(func(tid threads.ThreadID) {
		detect.ReadLock(rw, tid)
		time.Sleep(40 * time.Millisecond)
		detect.ReadUnlock(rw, tid)
	})
	w := spawn(func(tid threads.ThreadID) {
		time.Sleep(10 * time.Millisecond)
		if detect.WriteLock(rw, tid) == nil {
			detect.WriteUnlock(rw, tid)
		}
	})

	awaitChans([]<-chan struct{}{r1, r2, w}, timeout)
}

// Copyright (c) 2025 Erik Kassubek
//
// File: mutex.go
// Brief: Mutex-only scenarios
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package scenarios

import (
	"time"

	"deadlock/detect"
	"deadlock/resources"
	"deadlock/threads"
)

func spawn(fn func(tid threads.ThreadID)) <-chan struct{} {
	done := make(chan struct{}, 1)
	go func() {
		tid, err := detect.RegisterThreadSpawn(0)
		if err != nil {
			close(done)
			return
		}
		defer func() {
			detect.RegisterThreadExit(tid)
			done <- struct{}{}
		}()
		fn(tid)
	}()
	return done
}

// TwoThreadCross is the canonical AB-BA deadlock: two threads acquire
// the same two mutexes in opposite order.
func TwoThreadCross(timeout time.Duration) {
	m1, _ := detect.CreateMutex()
	m2, _ := detect.CreateMutex()

	d1 := spawn(func(tid threads.ThreadID) {
		detect.Lock(m1, tid)
		time.Sleep(50 * time.Millisecond)
		if detect.Lock(m2, tid) == nil {
			detect.Unlock(m2, tid)
		}
		detect.Unlock(m1, tid)
	})
	d2 := spawn(func(tid threads.ThreadID) {
		detect.Lock(m2, tid)
		time.Sleep(50 * time.Millisecond)
		if detect.Lock(m1, tid) == nil {
			detect.Unlock(m1, tid)
		}
		detect.Unlock(m2, tid)
	})

	awaitChans([]<-chan struct{}{d1, d2}, timeout)
}

// DiningPhilosophers seeds the classic N-philosopher deadlock: each
// philosopher i acquires fork i then fork (i+1)%n, with no philosopher
// acquiring in the opposite order, so every philosopher can block
// simultaneously holding one fork and waiting for the next.
func DiningPhilosophers(timeout time.Duration) {
	const n = 5

	forks := make([]resources.Handle, n)
	for i := range forks {
		forks[i], _ = detect.CreateMutex()
	}

	dones := make([]<-chan struct{}, n)
	for i := 0; i < n; i++ {
		i := i
		dones[i] = spawn(func(tid threads.ThreadID) {
			left, right := forks[i], forks[(i+1)%n]
			detect.Lock(left, tid)
			time.Sleep(20 * time.Millisecond)
			if detect.Lock(right, tid) == nil {
				detect.Unlock(right, tid)
			}
			detect.Unlock(left, tid)
		})
	}

	awaitChans(dones, timeout)
}

// MixedPrimitives seeds a three-thread cycle mixing a mutex, a rwlock
// write lock, and a rwlock read lock, to exercise cross-primitive
// conflict detection.
func MixedPrimitives(timeout time.Duration) {
	m, _ := detect.CreateMutex()
	rw, _ := detect.CreateRwLock()
	m2, _ := detect.CreateMutex()

	d1 := spawn(func(tid threads.ThreadID) {
		detect.Lock(m, tid)
		time.Sleep(30 * time.Millisecond)
		if detect.WriteLock(rw, tid) == nil {
			detect.WriteUnlock(rw, tid)
		}
		detect.Unlock(m, tid)
	})
	d2 := spawn(func(tid threads.ThreadID) {
		detect.ReadLock(rw, tid)
		time.Sleep(30 * time.Millisecond)
		if detect.Lock(m2, tid) == nil {
			detect.Unlock(m2, tid)
		}
		detect.ReadUnlock(rw, tid)
	})
	d3 := spawn(func(tid threads.ThreadID) {
		detect.Lock(m2, tid)
		time.Sleep(30 * time.Millisecond)
		if detect.Lock(m, tid) == nil {
			detect.Unlock(m, tid)
		}
		detect.Unlock(m2, tid)
	})

	awaitChans([]<-chan struct{}{d1, d2, d3}, timeout)
}

// RandomRing seeds a ring deadlock over a random number of mutexes
// between 3 and 8, thread i always waiting on thread i+1's mutex.
func RandomRing(timeout time.Duration) {
	n := 3 + int(time.Now().UnixNano()%6)

	locks := make([]resources.Handle, n)
	for i := range locks {
		locks[i], _ = detect.CreateMutex()
	}

	dones := make([]<-chan struct{}, n)
	for i := 0; i < n; i++ {
		i := i
		dones[i] = spawn(func(tid threads.ThreadID) {
			detect.Lock(locks[i], tid)
			time.Sleep(20 * time.Millisecond)
			next := locks[(i+1)%n]
			if detect.Lock(next, tid) == nil {
				detect.Unlock(next, tid)
			}
			detect.Unlock(locks[i], tid)
		})
	}

	awaitChans(dones, timeout)
}

func awaitChans(chans []<-chan struct{}, timeout time.Duration) {
	deadline := time.After(timeout)
	for _, c := range chans {
		select {
		case <-c:
		case <-deadline:
			return
		}
	}
}

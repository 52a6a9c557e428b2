// Copyright (c) 2025 Erik Kassubek
//
// File: condvar.go
// Brief: Condition variable scenarios
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

// CondvarCycle seeds a deadlock that only appears once a suspended
// waiter reacquires its mutex: thread A holds mxX then mx1 and waits on
// the condvar, atomically releasing mx1; thread B takes mx1 and then
// blocks on mxX (held by A); once a third thread notifies the condvar,
// A tries to reacquire mx1 (held by B) while B waits on mxX (held by
// A) -- a genuine two-thread cycle that only exists after the notify.
func CondvarCycle(timeout time.Duration) {
	cv, _ := detect.CreateCondvar()
	mx1, _ := detect.CreateMutex()
	mxX, _ := detect.CreateMutex()

	dA := spawn(func(tid threads.ThreadID) {
		detect.Lock(mxX, tid)
		detect.Lock(mx1, tid)
		detect.Wait(cv, mx1, tid)
		detect.Unlock(mx1, tid)
		detect.Unlock(mxX, tid)
	})

	time.Sleep(20 * time.Millisecond)

	dB := spawn(func(tid threads.ThreadID) {
		detect.Lock(mx1, tid)
		time.Sleep(20 * time.Millisecond)
		if detect.Lock(mxX, tid) == nil {
			detect.Unlock(mxX, tid)
		}
		detect.Unlock(mx1, tid)
	})

	dC := spawn(func(tid threads.ThreadID) {
		time.Sleep(60 * time.Millisecond)
		detect.NotifyOne(cv)
	})

	awaitChans([]<-chan struct{}{dA, dB, dC}, timeout)
}

// SpuriousWakeup confirms the normal predicate-loop condvar idiom never
// triggers a false report: a waiter blocks until a shared flag is set,
// re-checking the predicate on every wakeup, and a notifier sets the
// flag and wakes every waiter. No cycle exists at any point.
func SpuriousWakeup(timeout time.Duration) {
	cv, _ := detect.CreateCondvar()
	mx, _ := detect.CreateMutex()
	ready := false

	waiter := spawn(func(tid threads.ThreadID) {
		detect.Lock(mx, tid)
		for !ready {
			detect.Wait(cv, mx, tid)
		}
		detect.Unlock(mx, tid)
	})

	notifier := spawn(func(tid threads.ThreadID) {
		time.Sleep(20 * time.Millisecond)
		detect.Lock(mx, tid)
		ready = true
		detect.Unlock(mx, tid)
		detect.NotifyAll(cv)
	})

	awaitChans([]<-chan struct{}{waiter, notifier}, timeout)
}

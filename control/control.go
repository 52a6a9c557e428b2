// Copyright (c) 2025 Erik Kassubek
//
// File: control.go
// Brief: Memory supervision and abort signaling for the detector
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package control implements cross-cutting runtime control for the
// detector: a memory supervisor that aborts detection when the host is
// critically low on RAM or swapping heavily, and an abort flag that
// every blocking primitive call can cheaply observe. It is deliberately
// free of any dependency on the detect package; callers wire an abort
// callback in rather than control importing detect, to keep the
// dependency graph acyclic.
package control

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/mem"

	"deadlock/internal/log"
)

// Supervisor periodically samples system memory and swap usage and
// invokes onAbort once if available RAM drops below 2% of total, or
// swap usage grows by more than 1GB since the supervisor started. It
// runs until ctx is canceled.
//
// Parameter:
//   - ctx context.Context: cancels the supervisor loop
//   - onAbort func(): invoked exactly once, the first time a threshold
//     is crossed
func Supervisor(ctx context.Context, onAbort func()) {
	v, err := mem.VirtualMemory()
	if err != nil {
		log.Errorf("control: failed to read memory info: %s", err)
		return
	}
	s, err := mem.SwapMemory()
	if err != nil {
		log.Errorf("control: failed to read swap info: %s", err)
		return
	}

	thresholdRAM := uint64(float64(v.Total) * 0.02)
	thresholdSwap := uint64(1024 * 1024 * 1024) // 1GB
	startSwap := s.Used

	var fired atomic.Bool

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err = mem.VirtualMemory()
		if err != nil {
			log.Errorf("control: failed to read memory info: %s", err)
			continue
		}
		s, err = mem.SwapMemory()
		if err != nil {
			log.Errorf("control: failed to read swap info: %s", err)
			continue
		}

		low := v.Available < thresholdRAM
		swapping := s.Used > thresholdSwap+startSwap

		if (low || swapping) && fired.CompareAndSwap(false, true) {
			log.Error("control: aborting, system is critically low on memory")
			if onAbort != nil {
				onAbort()
			}
			runtime.GC()
			debug.FreeOSMemory()
		}
	}
}

// aborted is a process-wide flag the detector sets once aborted, so
// every primitive call can cheaply check it before doing any work.
var aborted atomic.Bool

// SetAborted marks the detector as aborted
func SetAborted() {
	aborted.Store(true)
}

// IsAborted reports whether the detector has been aborted
//
// Returns:
//   - bool: true if aborted
func IsAborted() bool {
	return aborted.Load()
}

// ResetAborted clears the abort flag, used between independent runs in
// the same process (e.g. in tests)
func ResetAborted() {
	aborted.Store(false)
}

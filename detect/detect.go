// Copyright (c) 2025 Erik Kassubek
//
// File: detect.go
// Brief: Public facade: lifecycle, configuration, and thread
//        registration for the deadlock detector
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package detect is the public facade of the deadlock detector: a
// single running instance per process, configured through Init, that
// threads and locks register against through package-level functions.
// Every call mirrors a C-callable entry point one level down (this is
// the API shape original_source's FFI surface exposes), so a thin cgo
// or syscall shim could sit directly on top of it without restructuring.
package detect

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"deadlock/control"
	"deadlock/eventlog"
	"deadlock/graph"
	"deadlock/internal/log"
	"deadlock/primitives"
	"deadlock/report"
	"deadlock/resources"
	"deadlock/threads"
)

// Config configures a detector instance
type Config struct {
	// LogPath, if non-empty, is the file (created or truncated by Init)
	// that detected deadlock reports and lifecycle events are written to
	// as line-delimited JSON
	LogPath string
	// Callback, if non-nil, is invoked synchronously with each detected
	// deadlock report, on the goroutine whose lock request closed the
	// cycle
	Callback func(report.Report)
	// BlockAfterReport controls whether the goroutine that triggered a
	// report is allowed to proceed to the real blocking call afterward.
	// When true, the detector observes and reports, it does not by itself
	// prevent the deadlock from happening, matching a non-invasive
	// monitoring tool; when false, the request returns ErrAborted instead.
	// The zero value is false; the deadlockdemo -block flag defaults to
	// true.
	BlockAfterReport bool
	// Quiet suppresses informational (non-error, non-result) logging
	Quiet bool
}

// Detector is a running instance of the deadlock detector. Most callers
// never construct one directly; Init installs the process-wide instance
// the package-level functions operate on.
type Detector struct {
	engine *primitives.Engine
	cfg    Config
	events *eventlog.Log

	deadlockDetected atomic.Bool

	cancelSupervisor context.CancelFunc

	mu       sync.Mutex
	mutexes  map[resources.LockID]*primitives.Mutex
	rwlocks  map[resources.LockID]*primitives.RwLock
	condvars map[resources.LockID]*primitives.Condvar
}

var (
	instMu   sync.Mutex
	instance *Detector
)

// Init starts the process-wide detector instance. Calling Init while
// one is already running returns ErrAlreadyInitialized; call Close
// first if a fresh instance is wanted.
//
// Parameter:
//   - cfg Config: the detector configuration
//
// Returns:
//   - error: ErrAlreadyInitialized, or ErrInvalidLogPath
func Init(cfg Config) error {
	instMu.Lock()
	defer instMu.Unlock()

	if instance != nil {
		return ErrAlreadyInitialized
	}

	log.Init(cfg.Quiet)

	events, err := eventlog.Open(cfg.LogPath)
	if err != nil {
		return ErrInvalidLogPath
	}

	d := &Detector{
		cfg:      cfg,
		events:   events,
		mutexes:  make(map[resources.LockID]*primitives.Mutex),
		rwlocks:  make(map[resources.LockID]*primitives.RwLock),
		condvars: make(map[resources.LockID]*primitives.Condvar),
	}
	d.engine = primitives.NewEngine(d)

	control.ResetAborted()
	control.LockDelayConfig()

	ctx, cancel := context.WithCancel(context.Background())
	d.cancelSupervisor = cancel
	go control.Supervisor(ctx, d.Abort)

	instance = d
	return nil
}

// Close stops the process-wide detector instance, flushing and closing
// its event log. It is safe to call Init again afterward.
//
// Returns:
//   - error: any error flushing the event log
func Close() error {
	instMu.Lock()
	d := instance
	instance = nil
	instMu.Unlock()

	if d == nil {
		return ErrNotInitialized
	}

	d.cancelSupervisor()
	control.UnlockDelayConfig()
	return d.events.Close()
}

func current() (*Detector, error) {
	instMu.Lock()
	defer instMu.Unlock()
	if instance == nil {
		return nil, ErrNotInitialized
	}
	return instance, nil
}

// ReportCycle implements primitives.Reporter. It marks the process-wide
// deadlock flag, appends the report to the event log, and invokes the
// configured callback.
//
// Parameter:
//   - c graph.Cycle: the detected cycle
func (d *Detector) ReportCycle(c graph.Cycle) {
	d.deadlockDetected.Store(true)

	r := report.FromCycle(c)
	d.events.Write(r)

	rendered, err := r.JSON()
	if err != nil {
		log.Errorf("detect: failed to render report: %s", err)
	} else {
		log.Result(string(rendered))
	}

	if d.cfg.Callback != nil {
		d.cfg.Callback(r)
	}
}

// BlockAfterReport implements primitives.Reporter
//
// Returns:
//   - bool: the configured BlockAfterReport value
func (d *Detector) BlockAfterReport() bool {
	return d.cfg.BlockAfterReport
}

// Abort marks the detector aborted: every subsequent blocking call on
// any tracked primitive returns ErrAborted instead of proceeding. Used
// by the memory supervisor, and available for callers that want to cut
// detection short themselves.
func (d *Detector) Abort() {
	control.SetAborted()
}

// Abort aborts the process-wide detector instance
//
// Returns:
//   - error: ErrNotInitialized
func Abort() error {
	d, err := current()
	if err != nil {
		return err
	}
	d.Abort()
	return nil
}

// IsDeadlockDetected reports whether any deadlock has been detected
// since the last ResetDeadlockFlag (or since Init)
//
// Returns:
//   - bool: true if at least one deadlock has been reported
//   - error: ErrNotInitialized
func IsDeadlockDetected() (bool, error) {
	d, err := current()
	if err != nil {
		return false, err
	}
	return d.deadlockDetected.Load(), nil
}

// ResetDeadlockFlag clears the process-wide deadlock-detected flag
//
// Returns:
//   - error: ErrNotInitialized
func ResetDeadlockFlag() error {
	d, err := current()
	if err != nil {
		return err
	}
	d.deadlockDetected.Store(false)
	return nil
}

// Flush flushes the event log to disk
//
// Returns:
//   - error: ErrNotInitialized, or any error flushing the log
func Flush() error {
	d, err := current()
	if err != nil {
		return err
	}
	return d.events.Flush()
}

// RegisterThreadSpawn registers a newly spawned thread (goroutine) as a
// child of parent (0 if it has none) and returns its newly allocated id.
//
// Parameter:
//   - parent threads.ThreadID: the id of the spawning thread, or 0
//
// Returns:
//   - threads.ThreadID: the new thread's id
//   - error: ErrNotInitialized
func RegisterThreadSpawn(parent threads.ThreadID) (threads.ThreadID, error) {
	d, err := current()
	if err != nil {
		return 0, err
	}

	id := d.engine.Threads.AllocateID()
	d.engine.Threads.Register(id, parent)

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventThreadSpawn,
		Timestamp: time.Now(),
		ThreadID:  uint64(id),
		ParentID:  uint64(parent),
	})

	return id, nil
}

// RegisterThreadExit unwinds a thread that is about to exit: every lock
// it still holds is released through the same path an explicit unlock
// uses, any locks it created are marked orphaned (destroyed immediately
// if unused, or on their last release otherwise), any outgoing wait
// edge is cleared defensively, and the thread is marked exited.
//
// Parameter:
//   - tid threads.ThreadID: the exiting thread
//
// Returns:
//   - error: ErrNotInitialized
func RegisterThreadExit(tid threads.ThreadID) error {
	d, err := current()
	if err != nil {
		return err
	}

	d.engine.Threads.MarkExiting(tid)

	d.releaseHeldLocks(tid)

	for _, h := range d.engine.Resources.LocksCreatedBy(tid) {
		d.engine.Resources.MarkOrphan(h)
		if _, err := d.engine.Resources.CreatorOf(h); err != nil {
			// destroyed immediately: drop it from the facade too, so later
			// calls on h report ErrNullHandle
			d.mu.Lock()
			delete(d.mutexes, h.ID())
			delete(d.rwlocks, h.ID())
			delete(d.condvars, h.ID())
			d.mu.Unlock()
		}
	}

	d.engine.Graph.ClearWait(tid)
	d.engine.Threads.MarkExited(tid)

	d.events.WriteEvent(eventlog.Event{
		Kind:      eventlog.EventThreadExit,
		Timestamp: time.Now(),
		ThreadID:  uint64(tid),
	})

	return nil
}

// releaseHeldLocks releases every lock tid currently holds, through the
// same Unlock/ReadUnlock/WriteUnlock path an explicit release uses, so
// each release emits the same graph event and is subject to the same
// orphan-deferral check. Per the data model, a live thread should not
// exit while still holding a lock an invariant-checking caller cares
// about, but an exiting thread cannot be left holding one either: this
// is the unwind path for exactly that case.
//
// Parameter:
//   - tid threads.ThreadID: the exiting thread
func (d *Detector) releaseHeldLocks(tid threads.ThreadID) {
	for _, held := range d.engine.Threads.HeldLocks(tid) {
		lid := resources.LockID(held.LockID)

		d.mu.Lock()
		m, isMutex := d.mutexes[lid]
		rw, isRwLock := d.rwlocks[lid]
		d.mu.Unlock()

		switch {
		case isMutex:
			m.Unlock(tid)
		case isRwLock:
			if held.Mode == int(graph.Exclusive) {
				rw.WriteUnlock(tid)
			} else {
				rw.ReadUnlock(tid)
			}
		}
	}
}

// Copyright (c) 2025 Erik Kassubek
//
// File: primitives.go
// Brief: Shared engine state and the reporter interface primitives
//        use to surface detected cycles
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package primitives implements the tracked synchronization primitives
// (mutex, rwlock, condvar): thin wrappers around the real sync
// primitives that additionally maintain the wait-for graph and consult
// the resource registry on every blocking operation.
package primitives

import (
	"deadlock/control"
	"deadlock/graph"
	"deadlock/resources"
	"deadlock/threads"
)

// Reporter is the callback surface the detect package's facade
// implements, consumed structurally by Engine so that primitives never
// imports detect (which would create an import cycle: detect already
// depends on primitives to do the real work).
type Reporter interface {
	// ReportCycle is invoked synchronously the moment a cycle closes.
	ReportCycle(c graph.Cycle)
	// BlockAfterReport reports whether the calling goroutine should
	// still be allowed to proceed to the real blocking call after a
	// cycle was reported on its request.
	BlockAfterReport() bool
}

// Engine bundles the graph, resource registry, and thread registry a
// set of tracked primitives share, plus the reporter used to surface
// cycles. One Engine is shared by every Mutex/RwLock/Condvar created
// through the same detector instance.
type Engine struct {
	Graph     *graph.Graph
	Resources *resources.Registry
	Threads   *threads.Registry
	Reporter  Reporter
}

// NewEngine creates a new, empty engine
//
// Parameter:
//   - reporter Reporter: the cycle reporter to use
//
// Returns:
//   - *Engine: the new engine
func NewEngine(reporter Reporter) *Engine {
	return &Engine{
		Graph:     graph.New(),
		Resources: resources.NewRegistry(),
		Threads:   threads.NewRegistry(),
		Reporter:  reporter,
	}
}

// aboutToWait records a wait edge, reports any resulting cycle to the
// engine's reporter, and returns whether the caller should proceed to
// actually block.
//
// Parameter:
//   - tid threads.ThreadID: the requesting thread
//   - lid resources.LockID: the lock being requested
//   - mode graph.Mode: the requested acquisition mode
//
// Returns:
//   - bool: true if the caller should proceed to block on the real
//     primitive
func (e *Engine) aboutToWait(tid threads.ThreadID, lid resources.LockID, mode graph.Mode) bool {
	control.Delay("about-to-wait")

	cycle := e.Graph.OnAboutToWait(tid, lid, mode)
	if cycle == nil {
		return true
	}

	e.Reporter.ReportCycle(*cycle)
	return e.Reporter.BlockAfterReport()
}

// reportSelfCycle reports the trivial one-thread cycle a reentrant lock
// request closes: tid already holds lid, so inserting tid's own wait
// edge closes a cycle immediately. The caller never actually blocks (it
// returns ErrReentrantLock instead), so the wait edge is removed again
// once the reporter has observed it; the graph must not retain a wait
// edge for a thread that isn't really waiting.
//
// Parameter:
//   - tid threads.ThreadID: the thread re-requesting a lock it holds
//   - lid resources.LockID: the lock being re-requested
//   - mode graph.Mode: the requested acquisition mode
func (e *Engine) reportSelfCycle(tid threads.ThreadID, lid resources.LockID, mode graph.Mode) {
	e.aboutToWait(tid, lid, mode)
	e.Graph.ClearWait(tid)
}

// Copyright (c) 2025 Erik Kassubek
//
// File: graph_test.go
// Brief: Tests for the wait-for graph and its cycle detection
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package graph

import (
	"testing"

	"deadlock/resources"
	"deadlock/threads"
)

func TestNoCycleOnFirstWait(t *testing.T) {
	g := New()
	t1 := threads.ThreadID(1)
	l1 := resources.LockID(1)

	if c := g.OnAboutToWait(t1, l1, Exclusive); c != nil {
		t.Fatalf("expected no cycle on an uncontended wait, got %+v", c)
	}
}

func TestTwoThreadCycle(t *testing.T) {
	g := New()
	t1, t2 := threads.ThreadID(1), threads.ThreadID(2)
	l1, l2 := resources.LockID(1), resources.LockID(2)

	// t1 holds l1, t2 holds l2
	g.OnAboutToWait(t1, l1, Exclusive)
	g.OnAcquired(t1, l1, Exclusive)
	g.OnAboutToWait(t2, l2, Exclusive)
	g.OnAcquired(t2, l2, Exclusive)

	// t1 waits for l2 (held by t2): no cycle yet
	if c := g.OnAboutToWait(t1, l2, Exclusive); c != nil {
		t.Fatalf("expected no cycle yet, got %+v", c)
	}

	// t2 waits for l1 (held by t1): closes the cycle
	c := g.OnAboutToWait(t2, l1, Exclusive)
	if c == nil {
		t.Fatalf("expected a cycle to be detected")
	}
	if len(c.Threads) != 2 {
		t.Fatalf("expected a 2-thread cycle, got %d threads", len(c.Threads))
	}
}

func TestDiningPhilosophersCycle(t *testing.T) {
	g := New()
	const n = 5

	threadIDs := make([]threads.ThreadID, n)
	forkIDs := make([]resources.LockID, n)
	for i := 0; i < n; i++ {
		threadIDs[i] = threads.ThreadID(i + 1)
		forkIDs[i] = resources.LockID(i + 1)
	}

	// each philosopher holds their left fork
	for i := 0; i < n; i++ {
		g.OnAboutToWait(threadIDs[i], forkIDs[i], Exclusive)
		g.OnAcquired(threadIDs[i], forkIDs[i], Exclusive)
	}

	// each philosopher but the last requests their right fork: no cycle
	// until the last one closes the ring
	var last *Cycle
	for i := 0; i < n; i++ {
		last = g.OnAboutToWait(threadIDs[i], forkIDs[(i+1)%n], Exclusive)
	}

	if last == nil {
		t.Fatalf("expected the ring to close into a cycle")
	}
	if len(last.Threads) != n {
		t.Fatalf("expected a %d-thread cycle, got %d", n, len(last.Threads))
	}
}

func TestConcurrentReadersNoCycle(t *testing.T) {
	g := New()
	l1 := resources.LockID(1)

	for i := 1; i <= 5; i++ {
		tid := threads.ThreadID(i)
		if c := g.OnAboutToWait(tid, l1, Shared); c != nil {
			t.Fatalf("reader %d should never see a cycle, got %+v", i, c)
		}
		g.OnAcquired(tid, l1, Shared)
	}
}

func TestWriterWaitsForReadersNoCycle(t *testing.T) {
	g := New()
	l1 := resources.LockID(1)
	r1, r2, w := threads.ThreadID(1), threads.ThreadID(2), threads.ThreadID(3)

	g.OnAboutToWait(r1, l1, Shared)
	g.OnAcquired(r1, l1, Shared)
	g.OnAboutToWait(r2, l1, Shared)
	g.OnAcquired(r2, l1, Shared)

	// writer waits behind two readers: not a cycle, readers don't wait on
	// anything
	if c := g.OnAboutToWait(w, l1, Exclusive); c != nil {
		t.Fatalf("writer waiting on live readers should not be a cycle, got %+v", c)
	}
}

func TestReleaseRemovesHoldEdge(t *testing.T) {
	g := New()
	t1, t2 := threads.ThreadID(1), threads.ThreadID(2)
	l1 := resources.LockID(1)

	g.OnAboutToWait(t1, l1, Exclusive)
	g.OnAcquired(t1, l1, Exclusive)
	g.OnReleased(t1, l1, Exclusive)

	// t2 should acquire immediately, no conflicting holder left
	if c := g.OnAboutToWait(t2, l1, Exclusive); c != nil {
		t.Fatalf("expected no cycle after release, got %+v", c)
	}
}

func TestCondvarReleaseThenReacquireIsNotContributingWhileSuspended(t *testing.T) {
	g := New()
	t1, t2 := threads.ThreadID(1), threads.ThreadID(2)
	mx := resources.LockID(1)

	g.OnAboutToWait(t1, mx, Exclusive)
	g.OnAcquired(t1, mx, Exclusive)

	// t1 waits on a condvar, atomically releasing mx
	g.OnCondvarRelease(t1, mx)

	// t2 can now acquire mx freely; t1 contributes no wait edge while suspended
	if c := g.OnAboutToWait(t2, mx, Exclusive); c != nil {
		t.Fatalf("expected no cycle while t1 is suspended on the condvar, got %+v", c)
	}
}

func TestClearWaitRemovesEdgeWithoutFollowingIt(t *testing.T) {
	g := New()
	t1 := threads.ThreadID(1)
	l1 := resources.LockID(1)

	g.OnAboutToWait(t1, l1, Exclusive)
	if !g.HasEdges(t1) {
		t.Fatalf("expected t1 to have a wait edge")
	}

	g.ClearWait(t1)
	if g.HasEdges(t1) {
		t.Fatalf("expected ClearWait to remove t1's wait edge")
	}
}

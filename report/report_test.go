// Copyright (c) 2025 Erik Kassubek
//
// File: report_test.go
// Brief: Tests for the deadlock report schema and JSON rendering
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package report

import (
	"encoding/json"
	"strings"
	"testing"

	"deadlock/graph"
	"deadlock/resources"
	"deadlock/threads"
)

func TestWaitEntryMarshalsAsTuple(t *testing.T) {
	e := WaitEntry{ThreadID: 1, LockID: 2}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := string(data), "[1,2]"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestWaitEntryUnmarshalsFromTuple(t *testing.T) {
	var e WaitEntry
	if err := json.Unmarshal([]byte("[3,4]"), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.ThreadID != 3 || e.LockID != 4 {
		t.Fatalf("expected {3 4}, got %+v", e)
	}
}

func TestReportThreadWaitingForLocksIsTupleArray(t *testing.T) {
	c := graph.Cycle{
		Threads: []threads.ThreadID{1, 2},
		Edges: []graph.WaitEdge{
			{Thread: 1, Lock: resources.LockID(10)},
			{Thread: 2, Lock: resources.LockID(20)},
		},
	}

	r := FromCycle(c)

	data, err := r.CompactJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `"thread_waiting_for_locks":[[1,10],[2,20]]`
	if !strings.Contains(string(data), want) {
		t.Fatalf("expected rendered report to contain %s, got %s", want, data)
	}
}

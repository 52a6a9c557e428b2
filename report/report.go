// Copyright (c) 2025 Erik Kassubek
//
// File: report.go
// Brief: Deadlock report schema and JSON rendering
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package report defines the structured deadlock report delivered to a
// user callback: the cycle of threads, the locks each thread in the
// cycle is waiting for, and the moment detection happened.
package report

import (
	"encoding/json"
	"time"

	"deadlock/graph"
	"deadlock/resources"
	"deadlock/threads"
)

// WaitEntry describes one thread's contribution to the cycle: which
// thread, waiting for which lock. It marshals as a 2-element
// [thread_id, lock_id] JSON array, matching the documented wire format.
type WaitEntry struct {
	ThreadID threads.ThreadID
	LockID   resources.LockID
}

// MarshalJSON renders the entry as a [thread_id, lock_id] tuple.
func (e WaitEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint64{uint64(e.ThreadID), uint64(e.LockID)})
}

// UnmarshalJSON parses a [thread_id, lock_id] tuple.
func (e *WaitEntry) UnmarshalJSON(data []byte) error {
	var pair [2]uint64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.ThreadID = threads.ThreadID(pair[0])
	e.LockID = resources.LockID(pair[1])
	return nil
}

// Report is the structured description of a detected deadlock, as
// delivered to the registered callback and written to the event log.
type Report struct {
	ThreadCycle           []threads.ThreadID `json:"thread_cycle"`
	ThreadWaitingForLocks []WaitEntry        `json:"thread_waiting_for_locks"`
	Timestamp             time.Time          `json:"timestamp"`
}

// FromCycle builds a Report from a graph cycle, stamped with the
// current time.
//
// Parameter:
//   - c graph.Cycle: the detected cycle
//
// Returns:
//   - Report: the structured report
func FromCycle(c graph.Cycle) Report {
	entries := make([]WaitEntry, len(c.Edges))
	for i, e := range c.Edges {
		entries[i] = WaitEntry{ThreadID: e.Thread, LockID: e.Lock}
	}

	return Report{
		ThreadCycle:           append([]threads.ThreadID(nil), c.Threads...),
		ThreadWaitingForLocks: entries,
		Timestamp:             time.Now(),
	}
}

// JSON renders the report as an indented JSON document, matching the
// field names a consumer of the detector's callback is expected to
// parse.
//
// Returns:
//   - []byte: the rendered JSON
//   - error: any marshaling error
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// CompactJSON renders the report as a single-line JSON document, used
// for the line-delimited event log.
//
// Returns:
//   - []byte: the rendered JSON
//   - error: any marshaling error
func (r Report) CompactJSON() ([]byte, error) {
	return json.Marshal(r)
}

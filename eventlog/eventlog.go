// Copyright (c) 2025 Erik Kassubek
//
// File: eventlog.go
// Brief: Opt-in append-only event log for detected deadlocks
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

// Package eventlog implements an opt-in, append-only, line-delimited
// JSON log of detected deadlock reports (Write) and lifecycle events
// (WriteEvent), used to keep a durable record
// across a run independent of whatever the user's callback does with
// each report.
package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"deadlock/internal/log"
	"deadlock/report"
)

// Log is an append-only, line-delimited JSON writer for deadlock
// reports. A zero-value Log is disabled: Write becomes a no-op, which
// lets callers hold a Log unconditionally and only Open it when a log
// path was configured.
type Log struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	enabled bool
}

// Open creates (or truncates) the log file at path and enables writing.
// An empty path leaves the log disabled.
//
// Parameter:
//   - path string: the log file path, or "" to disable
//
// Returns:
//   - *Log: the opened log
//   - error: any error opening the file
func Open(path string) (*Log, error) {
	if path == "" {
		return &Log{}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	return &Log{
		file:    f,
		writer:  bufio.NewWriter(f),
		enabled: true,
	}, nil
}

// Write appends one report to the log as a single JSON line. Errors are
// logged, not returned, so a logging failure never disrupts detection.
//
// Parameter:
//   - r report.Report: the report to append
func (l *Log) Write(r report.Report) {
	if l == nil || !l.enabled {
		return
	}

	data, err := r.CompactJSON()
	if err != nil {
		log.Errorf("eventlog: failed to marshal report: %s", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.writer.Write(data); err != nil {
		log.Errorf("eventlog: failed to write report: %s", err)
		return
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		log.Errorf("eventlog: failed to write report: %s", err)
	}
}

// EventKind names the kind of lifecycle event a log line records.
type EventKind string

// Lifecycle event kinds appended to the log when it is enabled, one
// per thread spawn/exit, lock create/destroy, and lock/unlock/wait/
// signal operation.
const (
	EventThreadSpawn       EventKind = "thread_spawn"
	EventThreadExit        EventKind = "thread_exit"
	EventMutexCreate       EventKind = "mutex_create"
	EventMutexDestroy      EventKind = "mutex_destroy"
	EventMutexLock         EventKind = "mutex_lock"
	EventMutexUnlock       EventKind = "mutex_unlock"
	EventRwLockCreate      EventKind = "rwlock_create"
	EventRwLockDestroy     EventKind = "rwlock_destroy"
	EventRwLockReadLock    EventKind = "rwlock_read_lock"
	EventRwLockReadUnlock  EventKind = "rwlock_read_unlock"
	EventRwLockWriteLock   EventKind = "rwlock_write_lock"
	EventRwLockWriteUnlock EventKind = "rwlock_write_unlock"
	EventCondvarCreate     EventKind = "condvar_create"
	EventCondvarDestroy    EventKind = "condvar_destroy"
	EventCondvarWait       EventKind = "condvar_wait"
	EventCondvarNotifyOne  EventKind = "condvar_notify_one"
	EventCondvarNotifyAll  EventKind = "condvar_notify_all"
)

// Event is a single lifecycle event: a thread or lock operation, the
// ids it involved, and when it happened.
type Event struct {
	Kind      EventKind `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	ThreadID  uint64    `json:"thread_id,omitempty"`
	LockID    uint64    `json:"lock_id,omitempty"`
	ParentID  uint64    `json:"parent_id,omitempty"`
}

// WriteEvent appends one lifecycle event to the log as a single JSON
// line. Errors are logged, not returned, so a logging failure never
// disrupts detection.
//
// Parameter:
//   - e Event: the event to append
func (l *Log) WriteEvent(e Event) {
	if l == nil || !l.enabled {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		log.Errorf("eventlog: failed to marshal event: %s", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.writer.Write(data); err != nil {
		log.Errorf("eventlog: failed to write event: %s", err)
		return
	}
	if err := l.writer.WriteByte('\n'); err != nil {
		log.Errorf("eventlog: failed to write event: %s", err)
	}
}

// Flush flushes any buffered log data to disk
//
// Returns:
//   - error: any error flushing or syncing the file
func (l *Log) Flush() error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close flushes and closes the log file
//
// Returns:
//   - error: any error closing the file
func (l *Log) Close() error {
	if l == nil || !l.enabled {
		return nil
	}

	if err := l.Flush(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Copyright (c) 2025 Erik Kassubek
//
// File: supplement.go
// Brief: Supplemented introspection API carried over from the original
//        implementation's FFI surface
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package detect

import (
	"deadlock/resources"
	"deadlock/threads"
)

// CreatorOf returns the thread that created the tracked lock a handle
// refers to. Useful for diagnostics and for deciding whether a lock is
// safe for the calling thread to destroy.
//
// Parameter:
//   - h resources.Handle: the handle to look up
//
// Returns:
//   - threads.ThreadID: the creator thread
//   - error: ErrNullHandle, or ErrNotInitialized
func CreatorOf(h resources.Handle) (threads.ThreadID, error) {
	d, err := current()
	if err != nil {
		return 0, err
	}

	tid, resErr := d.engine.Resources.CreatorOf(h)
	if resErr != nil {
		return 0, ErrNullHandle
	}
	return tid, nil
}

// LoggingEnabled reports whether the running detector instance was
// configured with an event log path.
//
// Returns:
//   - bool: true if events are being appended to a log file
//   - error: ErrNotInitialized
func LoggingEnabled() (bool, error) {
	d, err := current()
	if err != nil {
		return false, err
	}
	return d.cfg.LogPath != "", nil
}

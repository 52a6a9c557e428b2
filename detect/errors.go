// Copyright (c) 2025 Erik Kassubek
//
// File: errors.go
// Brief: Sentinel errors returned by the public detector API
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package detect

import (
	"errors"

	"deadlock/primitives"
	"deadlock/resources"
)

// Errors returned by the public detector API. Where an equivalent error
// already exists in a lower package, it is re-exported here rather than
// wrapped, so callers only ever need to import detect.
var (
	// ErrAlreadyInitialized is returned by Init if a detector is already running
	ErrAlreadyInitialized = errors.New("detect: already initialized")
	// ErrNotInitialized is returned by any call made before Init
	ErrNotInitialized = errors.New("detect: not initialized, call Init first")
	// ErrInvalidLogPath is returned by Init if the configured log path could not be opened
	ErrInvalidLogPath = errors.New("detect: could not open event log path")
	// ErrNullHandle is returned when a handle does not refer to any tracked lock
	ErrNullHandle = errors.New("detect: handle does not refer to a tracked lock")

	// ErrTypeMismatch is returned when a handle is used with an operation for the wrong primitive kind
	ErrTypeMismatch = resources.ErrTypeMismatch
	// ErrStillInUse is returned when destroying a lock that is held or has waiters
	ErrStillInUse = resources.ErrStillInUse
	// ErrNotHolder is returned when a thread releases a lock it does not hold
	ErrNotHolder = primitives.ErrNotHolder
	// ErrReentrantLock is returned when a thread re-requests a lock it already holds exclusively
	ErrReentrantLock = primitives.ErrReentrantLock
	// ErrMutexNotHeld is returned when Wait is called without the associated mutex held
	ErrMutexNotHeld = primitives.ErrNotMutexHeldForWait
	// ErrAborted is returned by any blocking call made after the detector has been aborted
	ErrAborted = primitives.ErrAborted
)

// Copyright (c) 2025 Erik Kassubek
//
// File: resources_test.go
// Brief: Tests for the resource registry
//
// Author: Erik Kassubek
// Created: 2025-09-10
//
// License: BSD-3-Clause

package resources

import (
	"testing"

	"deadlock/threads"
)

func TestCreateAndResolve(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, 0)

	d, err := r.Resolve(h, VariantMutex)
	if err != nil {
		t.Fatalf("unexpected error resolving handle: %v", err)
	}
	if d.ID() != h.ID() {
		t.Fatalf("resolved descriptor id %d does not match handle id %d", d.ID(), h.ID())
	}
}

func TestResolveWrongVariant(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, 0)

	if _, err := r.Resolve(h, VariantRwLock); err != ErrTypeMismatch {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestResolveUnknownHandle(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, 0)
	if err := r.Destroy(h, false); err != nil {
		t.Fatalf("unexpected error destroying handle: %v", err)
	}

	if _, err := r.Resolve(h, VariantMutex); err != ErrUnknownHandle {
		t.Fatalf("expected ErrUnknownHandle after destroy, got %v", err)
	}
}

func TestDestroyStillInUse(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, 0)
	d, _ := r.Resolve(h, VariantMutex)

	d.SetHolder(threads.ThreadID(1))

	if err := r.Destroy(h, false); err != ErrStillInUse {
		t.Fatalf("expected ErrStillInUse, got %v", err)
	}

	d.ClearHolder()
	if err := r.Destroy(h, false); err != nil {
		t.Fatalf("unexpected error destroying unused handle: %v", err)
	}
}

func TestMarkOrphanDeferredUntilRelease(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, threads.ThreadID(1))
	d, _ := r.Resolve(h, VariantMutex)
	d.SetHolder(threads.ThreadID(2))

	r.MarkOrphan(h)

	if _, err := r.Resolve(h, VariantMutex); err != nil {
		t.Fatalf("orphaned but in-use lock should not be destroyed yet: %v", err)
	}

	d.ClearHolder()
	r.ReleaseIfOrphaned(h)

	if _, err := r.Resolve(h, VariantMutex); err != ErrUnknownHandle {
		t.Fatalf("expected lock to be destroyed after last release, got %v", err)
	}
}

func TestMarkOrphanImmediateWhenUnused(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantMutex, threads.ThreadID(1))

	r.MarkOrphan(h)

	if _, err := r.Resolve(h, VariantMutex); err != ErrUnknownHandle {
		t.Fatalf("expected unused orphaned lock to be destroyed immediately, got %v", err)
	}
}

func TestLocksCreatedBy(t *testing.T) {
	r := NewRegistry()
	creator := threads.ThreadID(7)

	h1 := r.Create(VariantMutex, creator)
	h2 := r.Create(VariantRwLock, creator)
	r.Create(VariantMutex, threads.ThreadID(8))

	locks := r.LocksCreatedBy(creator)
	if len(locks) != 2 {
		t.Fatalf("expected 2 locks created by thread 7, got %d", len(locks))
	}

	found := map[LockID]bool{}
	for _, h := range locks {
		found[h.ID()] = true
	}
	if !found[h1.ID()] || !found[h2.ID()] {
		t.Fatalf("expected both created locks present in result")
	}
}

func TestReaderTracking(t *testing.T) {
	r := NewRegistry()
	h := r.Create(VariantRwLock, 0)
	d, _ := r.Resolve(h, VariantRwLock)

	d.AddReader(threads.ThreadID(1))
	d.AddReader(threads.ThreadID(2))
	if d.ReaderCount() != 2 {
		t.Fatalf("expected 2 readers, got %d", d.ReaderCount())
	}

	d.RemoveReader(threads.ThreadID(1))
	if d.ReaderCount() != 1 {
		t.Fatalf("expected 1 reader after removal, got %d", d.ReaderCount())
	}
}

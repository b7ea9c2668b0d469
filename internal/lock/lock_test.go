package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.lock")

	if err := Acquire(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	held, pid, err := IsHeld(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !held {
		t.Error("expected lock to be held")
	}
	if pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), pid)
	}

	if err := Release(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	held, _, err = IsHeld(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if held {
		t.Error("expected lock to be released")
	}
}

func TestAcquireRefusesRunningProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.lock")

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Acquire(path); err == nil {
		t.Error("expected error when the lock is held by a running process")
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.lock")

	// A pid beyond the kernel's default maximum cannot be running
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Acquire(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	held, pid, err := IsHeld(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !held || pid != os.Getpid() {
		t.Errorf("expected lock held by pid %d, got held=%v pid=%d", os.Getpid(), held, pid)
	}
}

func TestReleaseMissingLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.lock")
	if err := Release(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

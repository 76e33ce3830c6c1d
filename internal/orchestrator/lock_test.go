package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunLock(t *testing.T) {
	dir := t.TempDir()
	first := NewRunLock(dir)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	second := NewRunLock(dir)
	if err := second.Acquire(); err == nil {
		t.Fatal("second Acquire() should fail while the lock is held")
	}

	held, pid, err := second.Held()
	if err != nil {
		t.Fatalf("Held() error: %v", err)
	}
	if !held || pid != os.Getpid() {
		t.Errorf("Held() = %v, %d, want true, %d", held, pid, os.Getpid())
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, lockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed on release")
	}
	if held, _, _ := second.Held(); held {
		t.Error("Held() after release = true")
	}
	if err := second.Acquire(); err != nil {
		t.Errorf("Acquire() after release error: %v", err)
	}
	second.Release()
}

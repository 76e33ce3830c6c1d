package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFileName = "sim.lock"

// RunLock prevents two simulations from driving the same stores at once.
type RunLock struct {
	dir  string
	file *os.File
}

// NewRunLock creates a lock rooted at dir.
func NewRunLock(dir string) *RunLock {
	return &RunLock{dir: dir}
}

func (l *RunLock) path() string {
	return filepath.Join(l.dir, lockFileName)
}

// Acquire takes an exclusive lock and records the current PID.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}

	// Non-blocking: a second simulation fails fast.
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another simulation is already running in %s", l.dir)
		}
		return fmt.Errorf("acquiring lock: %w", err)
	}

	file.Truncate(0)
	file.Seek(0, 0)
	fmt.Fprintf(file, "%d\n", os.Getpid())

	l.file = file
	return nil
}

// Release drops the lock and removes the lock file.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("closing lock file: %w", err)
	}
	os.Remove(l.path())

	l.file = nil
	return nil
}

// Held reports whether another process holds the lock, and its PID.
func (l *RunLock) Held() (bool, int, error) {
	file, err := os.Open(l.path())
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("opening lock file: %w", err)
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		var pid int
		fmt.Fscanf(file, "%d", &pid)
		return true, pid, nil
	}
	syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	return false, 0, nil
}

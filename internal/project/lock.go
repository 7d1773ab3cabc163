package project

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// BuildLock enforces the single-writer build model (§5): only one
// build may run against a project at a time.
type BuildLock struct {
	fl *flock.Flock
}

// NewBuildLock returns a lock for the project at l.Dir, backed by a
// .build.lock file in the project root.
func (l Layout) NewBuildLock() *BuildLock {
	return &BuildLock{fl: flock.New(l.Dir + "/.build.lock")}
}

// Acquire retries every 200ms until the lock is held, returning an
// error once ctx is done; with a ctx that is never done it waits for
// as long as another build holds the lock.
func (b *BuildLock) Acquire(ctx context.Context) error {
	locked, err := b.fl.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring build lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another build is already running against this project")
	}
	return nil
}

// Release unlocks the build lock.
func (b *BuildLock) Release() error {
	return b.fl.Unlock()
}

package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockPath returns the advisory lock file guarding outputPath. It is hidden
// so export discovery never picks it up. The file stays after a run, even a
// failed one: unlinking it would let a process still holding the old inode
// and a newcomer locking a fresh file both believe they own the output.
func LockPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".lock")
}

func acquireOutputLock(outputPath string) (*flock.Flock, error) {
	lock := flock.New(LockPath(outputPath))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	return lock, nil
}

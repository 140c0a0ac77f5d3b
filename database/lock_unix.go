//go:build unix

package database

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/Bal0sk/diffkemp/logger"
)

// lock takes an exclusive advisory lock on f and returns its release.
// Appends stay line-atomic without it, so a failure only costs batch
// contiguity.
func lock(f *os.File) func() {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		logger.Log.Debug().Err(err).Str("db", f.Name()).Msg("flock failed, appending unlocked")
		return func() {}
	}
	return func() { _ = unix.Flock(fd, unix.LOCK_UN) }
}

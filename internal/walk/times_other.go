//go:build !linux && !darwin

package walk

import (
	"io/fs"
	"time"
)

// statTimes falls back to mtime on platforms without a portable atime/ctime
// in the stat result.
func statTimes(info fs.FileInfo) (atime, ctime time.Time) {
	return info.ModTime(), info.ModTime()
}

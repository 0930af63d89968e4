//go:build darwin

package walk

import (
	"io/fs"
	"syscall"
	"time"
)

// statTimes extracts atime and ctime from the raw stat.
func statTimes(info fs.FileInfo) (atime, ctime time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec),
		time.Unix(st.Ctimespec.Sec, st.Ctimespec.Nsec)
}

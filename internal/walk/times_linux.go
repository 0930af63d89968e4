//go:build linux

package walk

import (
	"io/fs"
	"syscall"
	"time"
)

// statTimes extracts atime and ctime from the raw stat. Nanoseconds are
// preserved; the day-granularity predicates divide them away.
func statTimes(info fs.FileInfo) (atime, ctime time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec),
		time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
}

// Package walk implements the directory walker and the stat-based predicate
// filters of the find grammar: -type, -size, -mtime/-atime/-ctime,
// -maxdepth/-mindepth, -empty and -prune. Name and regex predicates are not
// here; they run in the batch matching engines after the walk.
package walk

import (
	"io/fs"
	"os"
	"time"
)

// Cmp is the +N / -N / N comparison prefix.
type Cmp int

const (
	// CmpExact matches the value exactly.
	CmpExact Cmp = iota

	// CmpGreater matches strictly greater values (the '+' prefix).
	CmpGreater

	// CmpLess matches strictly less values (the '-' prefix).
	CmpLess
)

func (c Cmp) compare(v, n int64) bool {
	switch c {
	case CmpGreater:
		return v > n
	case CmpLess:
		return v < n
	default:
		return v == n
	}
}

// SizePredicate implements -size. The file size is rounded up to whole
// units before comparing, matching find: a 1-byte file is one 512-byte
// block.
type SizePredicate struct {
	Cmp  Cmp
	N    int64
	Unit int64 // bytes per unit: c=1 w=2 b=512 k=1024 M=2^20 G=2^30
}

// Match tests a file size in bytes.
func (p *SizePredicate) Match(size int64) bool {
	units := (size + p.Unit - 1) / p.Unit
	return p.Cmp.compare(units, p.N)
}

// TimeKind selects which stat timestamp a TimePredicate reads.
type TimeKind int

const (
	// TimeModified is mtime (-mtime).
	TimeModified TimeKind = iota

	// TimeAccessed is atime (-atime).
	TimeAccessed

	// TimeChanged is inode change time (-ctime).
	TimeChanged
)

// TimePredicate implements -mtime/-atime/-ctime over whole days:
// age_days = floor((now - file_time) / 86400).
type TimePredicate struct {
	Cmp  Cmp
	N    int64
	Kind TimeKind
}

// Match tests a file timestamp against now.
func (p *TimePredicate) Match(ft time.Time, now time.Time) bool {
	age := now.Unix() - ft.Unix()
	days := age / 86400
	if age < 0 {
		// Future timestamps floor toward negative infinity.
		days = (age - 86399) / 86400
	}
	return p.Cmp.compare(days, p.N)
}

// timeOf picks the requested timestamp out of a stat result.
func (p *TimePredicate) timeOf(info fs.FileInfo) time.Time {
	switch p.Kind {
	case TimeAccessed:
		atime, _ := statTimes(info)
		return atime
	case TimeChanged:
		_, ctime := statTimes(info)
		return ctime
	default:
		return info.ModTime()
	}
}

// Predicates is the conjunction of all stat-based filters for one run. Zero
// values mean "no filter".
type Predicates struct {
	Type  byte // one of f d l b c p s, or 0
	Size  *SizePredicate
	MTime *TimePredicate
	ATime *TimePredicate
	CTime *TimePredicate
	Empty bool
}

// needStat reports whether matching requires an lstat beyond the DirEntry
// type bits.
func (p *Predicates) needStat() bool {
	return p.Size != nil || p.MTime != nil || p.ATime != nil || p.CTime != nil || p.Empty
}

// Match evaluates every configured predicate against one entry. Stat
// failures make the entry not match; the walker has already decided how to
// report the error.
func (p *Predicates) Match(path string, d fs.DirEntry, now time.Time) bool {
	if p.Type != 0 && !typeMatches(p.Type, d.Type()) {
		return false
	}
	if !p.needStat() {
		return true
	}

	info, err := d.Info()
	if err != nil {
		return false
	}

	if p.Size != nil && !p.Size.Match(info.Size()) {
		return false
	}
	if p.MTime != nil && !p.MTime.Match(info.ModTime(), now) {
		return false
	}
	if p.ATime != nil && !p.ATime.Match(p.ATime.timeOf(info), now) {
		return false
	}
	if p.CTime != nil && !p.CTime.Match(p.CTime.timeOf(info), now) {
		return false
	}
	if p.Empty && !isEmpty(path, info) {
		return false
	}
	return true
}

// typeMatches maps the -type letter onto file mode bits.
func typeMatches(t byte, mode fs.FileMode) bool {
	switch t {
	case 'f':
		return mode.IsRegular()
	case 'd':
		return mode.IsDir()
	case 'l':
		return mode&fs.ModeSymlink != 0
	case 'b':
		return mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0
	case 'c':
		return mode&fs.ModeCharDevice != 0
	case 'p':
		return mode&fs.ModeNamedPipe != 0
	case 's':
		return mode&fs.ModeSocket != 0
	default:
		return false
	}
}

// isEmpty reports an empty regular file or a directory with no entries.
func isEmpty(path string, info fs.FileInfo) bool {
	if info.Mode().IsRegular() {
		return info.Size() == 0
	}
	if info.IsDir() {
		ents, err := os.ReadDir(path)
		return err == nil && len(ents) == 0
	}
	return false
}

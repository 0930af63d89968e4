package walk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSizePredicate(t *testing.T) {
	sizes := []int64{0, 100, 1 * 1024, 10 * 1024, 100 * 1024, 1048577}

	t.Run("plus_1M", func(t *testing.T) {
		p := &SizePredicate{Cmp: CmpGreater, N: 1, Unit: 1 << 20}
		var n int
		for _, s := range sizes {
			if p.Match(s) {
				n++
			}
		}
		assert.Equal(t, 1, n, "+1M over the specified size set")
	})

	t.Run("units_round_up", func(t *testing.T) {
		p := &SizePredicate{Cmp: CmpExact, N: 1, Unit: 512}
		assert.True(t, p.Match(1), "a 1-byte file occupies one block")
		assert.True(t, p.Match(512))
		assert.False(t, p.Match(513))
		assert.False(t, p.Match(0))
	})

	t.Run("exact_bytes", func(t *testing.T) {
		p := &SizePredicate{Cmp: CmpExact, N: 100, Unit: 1}
		assert.True(t, p.Match(100))
		assert.False(t, p.Match(99))
	})

	t.Run("minus", func(t *testing.T) {
		p := &SizePredicate{Cmp: CmpLess, N: 10, Unit: 1024}
		assert.True(t, p.Match(5*1024))
		assert.False(t, p.Match(10*1024))
	})
}

func TestTimePredicate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	daysAgo := func(d int64) time.Time {
		return now.Add(-time.Duration(d) * 24 * time.Hour)
	}

	tests := []struct {
		name string
		cmp  Cmp
		n    int64
		ft   time.Time
		want bool
	}{
		{"exact_today", CmpExact, 0, now.Add(-time.Hour), true},
		{"exact_two_days", CmpExact, 2, daysAgo(2).Add(-time.Hour), true},
		{"exact_mismatch", CmpExact, 2, daysAgo(1), false},
		{"plus_strict", CmpGreater, 3, daysAgo(3).Add(-time.Hour), false},
		{"plus_match", CmpGreater, 3, daysAgo(5), true},
		{"minus_match", CmpLess, 3, daysAgo(1), true},
		{"minus_edge", CmpLess, 3, daysAgo(3).Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &TimePredicate{Cmp: tt.cmp, N: tt.n}
			assert.Equal(t, tt.want, p.Match(tt.ft, now))
		})
	}
}

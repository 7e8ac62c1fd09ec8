package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Matches(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2026, 9, d, 15, 0, 0, 0, time.UTC) }
	base := Record{ID: "m1", Kind: KindResults, Date: day(15), Club: "Harbour Town"}

	tests := []struct {
		name   string
		filter Filter
		rec    Record
		want   bool
	}{
		{name: "open filter", filter: Filter{}, rec: base, want: true},
		{name: "inclusive bounds", filter: Filter{From: day(15), To: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)}, rec: base, want: true},
		{name: "before window", filter: Filter{From: day(16)}, rec: base, want: false},
		{name: "after window", filter: Filter{To: day(14)}, rec: base, want: false},
		{name: "club ignores case", filter: Filter{Club: "harbour town"}, rec: base, want: true},
		{name: "other club", filter: Filter{Club: "Rovers"}, rec: base, want: false},
		{name: "only unposted", filter: Filter{OnlyUnposted: true}, rec: Record{Date: day(15), Posted: true}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.filter.Matches(tc.rec))
		})
	}
}

func TestParseKindAndStatus(t *testing.T) {
	t.Parallel()

	kind, ok := ParseKind("Results")
	assert.True(t, ok)
	assert.Equal(t, KindResults, kind)

	_, ok = ParseKind("standings")
	assert.False(t, ok)

	assert.Equal(t, StatusFinished, NormalizeStatus("FT"))
	assert.Equal(t, StatusScheduled, NormalizeStatus(""))
}

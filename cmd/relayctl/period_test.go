package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFlags_Resolve(t *testing.T) {
	now := time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name      string
		flags     periodFlags
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "month", flags: periodFlags{month: "2025-02"}, wantStart: date(2025, 2, 1), wantEnd: date(2025, 2, 28)},
		{name: "range", flags: periodFlags{from: "2025-01-04", to: "2025-01-18"}, wantStart: date(2025, 1, 4), wantEnd: date(2025, 1, 18)},
		{name: "next month crosses year", flags: periodFlags{next: true}, wantStart: date(2026, 1, 1), wantEnd: date(2026, 1, 31)},
		{name: "previous month", flags: periodFlags{previous: true}, wantStart: date(2025, 11, 1), wantEnd: date(2025, 11, 30)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.flags.resolve(now)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, got.Start)
			assert.Equal(t, tc.wantEnd, got.End)
		})
	}
}

func TestPeriodFlags_ResolveErrors(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]periodFlags{
		"none":            {},
		"two selectors":   {month: "2025-01", next: true},
		"bad month":       {month: "2025-13"},
		"missing to":      {from: "2025-01-01"},
		"reversed range":  {from: "2025-01-18", to: "2025-01-04"},
		"unparsable from": {from: "04/01/2025", to: "2025-01-18"},
	}
	for name, flags := range cases {
		_, err := flags.resolve(now)
		assert.Error(t, err, name)
	}
}

func TestRootCmd_RejectsUnknownKindBeforeLoadingConfig(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"summarize", "--kind", "standings", "--month", "2025-01"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "standings")
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, map[string]int{"count": 2}))
	assert.JSONEq(t, `{"count":2}`, buf.String())
}

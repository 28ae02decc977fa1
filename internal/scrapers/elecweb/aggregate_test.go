package elecweb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAggregateCells(t *testing.T) {
	testCases := []struct {
		cells    []string
		expected float64
	}{
		{cells: []string{"12.5", "", " ", "abc", "7.25"}, expected: 19.75},
		{cells: []string{" 1 ", "\t2\n"}, expected: 3},
		{cells: []string{"NaN", "Inf", "-Inf", "1e400", "4"}, expected: 4},
		{cells: []string{"-1.5", "1.5"}, expected: 0},
		{cells: nil, expected: 0},
	}

	for _, test := range testCases {
		require.InDelta(t, test.expected, AggregateCells(test.cells), 1e-9, test.cells)
	}
}

func TestAggregateRecords(t *testing.T) {
	records := []UsageRecord{
		{Year: 2025, Month: time.November, Cells: []string{"d", "a", "b", "12.5", ""}},
		{Year: 2025, Month: time.November, Cells: []string{"d", "a", "b", "", ""}},
		{Year: 2025, Month: time.December, Cells: []string{"d", "a", "b", "abc", ""}},
		{Year: 2025, Month: time.December, Cells: []string{"d", "a", "b", "7.25", ""}},
		{Year: 2025, Month: time.December, Cells: []string{"short"}},
	}
	require.InDelta(t, 19.75, Aggregate(records, DefaultUsageColumn), 1e-9)

	_, ok := records[4].Usage(DefaultUsageColumn)
	require.False(t, ok)
	_, ok = records[0].Usage(-1)
	require.False(t, ok)
}

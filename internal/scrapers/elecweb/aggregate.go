package elecweb

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// UsageRecord is one grid row, tagged with the month it was harvested for.
type UsageRecord struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Cells []string   `json:"cells"`
}

// Usage parses the cell at `column`, ok is false when it is missing, blank, unparsable
// or not finite.
func (r UsageRecord) Usage(column int) (float64, bool) {
	if column < 0 || column >= len(r.Cells) {
		return 0, false
	}
	return parseUsage(r.Cells[column])
}

func parseUsage(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Aggregate sums the usage column of `records`, skipping values that do not parse.
func Aggregate(records []UsageRecord, column int) float64 {
	total := 0.0
	for _, record := range records {
		value, ok := record.Usage(column)
		if ok {
			total += value
		}
	}
	return total
}

// AggregateCells is Aggregate over bare cell values.
func AggregateCells(cells []string) float64 {
	total := 0.0
	for _, cell := range cells {
		value, ok := parseUsage(cell)
		if ok {
			total += value
		}
	}
	return total
}

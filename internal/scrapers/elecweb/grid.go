package elecweb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"elecharvest/internal/components/chrono"
	"elecharvest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// GridPage is one page of the usage grid.
type GridPage struct {
	// Found is false when the page has no grid at all (a month without data).
	Found bool
	// Headers are the `th` texts of the first row, nil if it has none.
	Headers []string
	Rows    [][]string
	// HasNext is set when the page links to a further page.
	HasNext bool
}

// ParseGrid reads the `gvElecInfo` grid of a page. Rows of nested tables (the pager)
// are ignored, as are rows that do not carry a non-blank value in `usageColumn`.
func ParseGrid(doc *goquery.Document, usageColumn int) GridPage {
	page := GridPage{}
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(a.Text(), nextPageMarker) {
			page.HasNext = true
			return false
		}
		return true
	})

	grid := doc.Find("table#" + gridId).First()
	if grid.Length() == 0 {
		return page
	}
	page.Found = true

	gridNode := grid.Get(0)
	rows := grid.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		owner := row.Closest("table")
		return owner.Length() > 0 && owner.Get(0) == gridNode
	})

	headers := rows.First().ChildrenFiltered("th")
	if headers.Length() > 0 {
		page.Headers = htmlutil.RowTexts(headers)
	}

	minCells := minGridCells
	if usageColumn >= minCells {
		minCells = usageColumn + 1
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		if strings.Contains(row.Text(), nextPageMarker) {
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() < minCells {
			return
		}
		record := htmlutil.RowTexts(cells)
		if record[usageColumn] == "" {
			return
		}
		page.Rows = append(page.Rows, record)
	})
	return page
}

type monthHarvest struct {
	month   chrono.YearMonth
	records []UsageRecord
	pages   int
	headers []string
}

func monthFields(ym chrono.YearMonth) [][2]string {
	return [][2]string{
		{fieldYear, strconv.Itoa(ym.Year)},
		{fieldMonth, fmt.Sprintf("%02d", int(ym.Month))},
	}
}

// harvestMonth selects `ym` on the report page `from` and drains every page of the grid.
// It returns the last response so that the next month posts fresh tokens.
func (h *Harvester) harvestMonth(ctx context.Context, from *response, ym chrono.YearMonth) (monthHarvest, *response, error) {
	ctx, span := tracer.Start(ctx, "harvestMonth")
	defer span.End()

	result := monthHarvest{month: ym}
	label := ym.String()

	res, err := h.postback(ctx, from, step{
		name:     "select-month",
		label:    label,
		endpoint: reportEndpoint,
		fields:   append(monthFields(ym), [2]string{fieldSelect, selectButtonText}),
	})
	if err != nil {
		return result, nil, err
	}

	for {
		result.pages++
		grid := ParseGrid(res.doc, h.cfg.UsageColumn)
		if grid.Found && result.headers == nil && grid.Headers != nil {
			result.headers = grid.Headers
		}
		for _, row := range grid.Rows {
			result.records = append(result.records, UsageRecord{
				Year:  ym.Year,
				Month: ym.Month,
				Cells: row,
			})
		}
		h.tel.ReportDebug(report_client_harvest_month, label, result.pages, len(grid.Rows))

		if !grid.HasNext {
			break
		}
		if result.pages >= h.cfg.MaxPagesPerMonth {
			h.tel.ReportBroken(report_client_harvest_month, ErrNonTerminatingPagination, label, result.pages)
			return result, res, stepError("next-page", label, fmt.Errorf(
				"%w: %d pages", ErrNonTerminatingPagination, result.pages,
			))
		}

		res, err = h.postback(ctx, res, step{
			name:          "next-page",
			label:         label,
			endpoint:      reportEndpoint,
			eventTarget:   gridId,
			eventArgument: pageNextArgument,
			fields:        monthFields(ym),
		})
		if err != nil {
			return result, nil, err
		}
	}

	h.tel.ReportCount(report_client_harvest_month, int64(len(result.records)))
	return result, res, nil
}

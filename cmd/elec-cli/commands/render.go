package commands

import (
	"fmt"
	"os"

	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	jsoniter "github.com/json-iterator/go"
)

func kwh(value float64) string {
	return humanize.FormatFloat("#,###.##", value)
}

func printJson(value any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func renderResult(result *elecweb.HarvestResult, withRecords bool) {
	fmt.Printf("%s  %s  harvested %s\n", result.Selection, result.Window, humanize.Time(result.HarvestedAt))
	if result.Partial && result.FailedMonth != nil {
		fmt.Printf("partial result, harvesting stopped at %s\n", result.FailedMonth)
	}

	if len(result.Overview) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("Overview")
		for _, row := range result.Overview {
			cells := make(table.Row, len(row))
			for i, cell := range row {
				cells[i] = cell
			}
			t.AppendRow(cells)
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Month", "Pages", "Records", "Usage (kWh)"})
	for _, month := range result.Months {
		t.AppendRow(table.Row{month.Month.String(), month.Pages, month.Records, kwh(month.Usage)})
	}
	t.AppendFooter(table.Row{"Total", "", len(result.Records), kwh(result.TotalUsage)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if !withRecords || len(result.Records) == 0 {
		return
	}

	records := table.NewWriter()
	records.SetOutputMirror(os.Stdout)
	header := table.Row{"Month"}
	for _, h := range result.Headers {
		header = append(header, h)
	}
	records.AppendHeader(header)
	for _, record := range result.Records {
		row := table.Row{fmt.Sprintf("%04d-%02d", record.Year, int(record.Month))}
		for _, cell := range record.Cells {
			row = append(row, cell)
		}
		records.AppendRow(row)
	}
	records.SetStyle(table.StyleRounded)
	records.Render()
}

func renderHarvests(harvests []store.HarvestSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Id", "Room", "Window", "Harvested", "Records", "Usage (kWh)", "Partial"})
	for _, h := range harvests {
		t.AppendRow(table.Row{
			h.Id,
			h.Room.String(),
			h.Window.String(),
			humanize.Time(h.HarvestedAt),
			h.Records,
			kwh(h.TotalUsage),
			h.Partial,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderMonthly(months []store.MonthlyUsage, total float64) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Month", "Records", "Usage (kWh)", "Harvest"})
	for _, m := range months {
		t.AppendRow(table.Row{m.Month.String(), m.Records, kwh(m.Usage), m.HarvestId})
	}
	t.AppendFooter(table.Row{"Total", "", kwh(total), ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

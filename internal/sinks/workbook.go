package sinks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"elecharvest/internal/scrapers/elecweb"

	"github.com/xuri/excelize/v2"
)

const (
	sheetRecords  = "records"
	sheetMonths   = "months"
	sheetOverview = "overview"
)

// Workbook writes every result to an xlsx file in Directory.
type Workbook struct {
	Directory string
	// LastPath is the file written by the last Accept.
	LastPath string
}

func NewWorkbook(directory string) *Workbook {
	return &Workbook{Directory: directory}
}

func workbookName(result *elecweb.HarvestResult) string {
	room := strings.NewReplacer("/", "-", " ", "").Replace(result.Selection.String())
	return fmt.Sprintf(
		"elec_%s_%s_%s.xlsx",
		room,
		result.Window.String(),
		result.HarvestedAt.Format("20060102T150405"),
	)
}

func writeRows(file *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		err = file.SetSheetRow(sheet, cell, &row)
		if err != nil {
			return err
		}
	}
	return nil
}

// Build lays a result out over three sheets: the raw records, the per month summary
// and the overview of the room.
func Build(result *elecweb.HarvestResult) (*excelize.File, error) {
	file := excelize.NewFile()

	err := file.SetSheetName("Sheet1", sheetRecords)
	if err != nil {
		return nil, err
	}
	records := [][]any{}
	if len(result.Headers) > 0 {
		header := []any{"month"}
		for _, h := range result.Headers {
			header = append(header, h)
		}
		records = append(records, header)
	}
	for _, record := range result.Records {
		row := []any{fmt.Sprintf("%04d-%02d", record.Year, int(record.Month))}
		for i, cell := range record.Cells {
			if i == result.UsageColumn {
				value, ok := record.Usage(result.UsageColumn)
				if ok {
					row = append(row, value)
					continue
				}
			}
			row = append(row, cell)
		}
		records = append(records, row)
	}
	err = writeRows(file, sheetRecords, records)
	if err != nil {
		return nil, err
	}

	_, err = file.NewSheet(sheetMonths)
	if err != nil {
		return nil, err
	}
	months := [][]any{{"month", "records", "usage", "pages"}}
	for _, month := range result.Months {
		months = append(months, []any{month.Month.String(), month.Records, month.Usage, month.Pages})
	}
	months = append(months, []any{"total", len(result.Records), result.TotalUsage})
	err = writeRows(file, sheetMonths, months)
	if err != nil {
		return nil, err
	}

	_, err = file.NewSheet(sheetOverview)
	if err != nil {
		return nil, err
	}
	overview := [][]any{}
	for _, row := range result.Overview {
		out := make([]any, len(row))
		for i, cell := range row {
			out[i] = cell
		}
		overview = append(overview, out)
	}
	err = writeRows(file, sheetOverview, overview)
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (w *Workbook) Accept(ctx context.Context, result *elecweb.HarvestResult) error {
	file, err := Build(result)
	if err != nil {
		return err
	}
	defer file.Close()

	err = os.MkdirAll(w.Directory, 0777)
	if err != nil {
		return err
	}
	path := filepath.Join(w.Directory, workbookName(result))
	err = file.SaveAs(path)
	if err != nil {
		return err
	}
	w.LastPath = path
	return nil
}

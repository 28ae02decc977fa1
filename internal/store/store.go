package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"elecharvest/internal/components/chrono"
	"elecharvest/internal/scrapers/elecweb"

	jsoniter "github.com/json-iterator/go"
)

//go:embed schema.sql
var Schema string

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrHarvestNotFound = errors.New("harvest not found")

// Room identifies a room by the labels it was selected with.
type Room struct {
	Campus    string `json:"campus"`
	Community string `json:"community"`
	Building  string `json:"building"`
	Room      string `json:"room"`
}

func RoomOf(sel elecweb.Selection) Room {
	return Room{
		Campus:    sel.Campus,
		Community: sel.Community,
		Building:  sel.Building,
		Room:      sel.Room,
	}
}

func (r Room) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", r.Campus, r.Community, r.Building, r.Room)
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Migrate creates the tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// SaveHarvest persists a harvest and returns its id. The credential of the selection
// is never stored.
func (s Store) SaveHarvest(ctx context.Context, result *elecweb.HarvestResult) (int64, error) {
	headers, err := json.Marshal(result.Headers)
	if err != nil {
		return 0, err
	}
	overview, err := json.Marshal(result.Overview)
	if err != nil {
		return 0, err
	}
	var failedMonth sql.NullString
	if result.FailedMonth != nil {
		failedMonth = sql.NullString{String: result.FailedMonth.String(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(
		ctx,
		`insert into harvest(
			campus, community, building, room, window_start, window_end, harvested_at,
			total_usage, usage_column, partial, failed_month, headers, overview
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		returning id`,
		result.Selection.Campus,
		result.Selection.Community,
		result.Selection.Building,
		result.Selection.Room,
		result.Window.Start.String(),
		result.Window.End.String(),
		result.HarvestedAt.Unix(),
		result.TotalUsage,
		result.UsageColumn,
		result.Partial,
		failedMonth,
		string(headers),
		string(overview),
	)
	var id int64
	err = row.Scan(&id)
	if err != nil {
		return 0, err
	}

	for i, record := range result.Records {
		cells, err := json.Marshal(record.Cells)
		if err != nil {
			return 0, err
		}
		var usage sql.NullFloat64
		value, ok := record.Usage(result.UsageColumn)
		if ok {
			usage = sql.NullFloat64{Float64: value, Valid: true}
		}
		_, err = tx.ExecContext(
			ctx,
			`insert into usage_record(harvest_id, seq, year, month, cells, usage) values (?, ?, ?, ?, ?, ?)`,
			id, i, record.Year, int(record.Month), string(cells), usage,
		)
		if err != nil {
			return 0, err
		}
	}

	for _, month := range result.Months {
		_, err = tx.ExecContext(
			ctx,
			`insert into month_summary(harvest_id, year, month, records, usage, pages) values (?, ?, ?, ?, ?, ?)`,
			id, month.Month.Year, int(month.Month.Month), month.Records, month.Usage, month.Pages,
		)
		if err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// HarvestSummary is a harvest without its records.
type HarvestSummary struct {
	Id          int64              `json:"id"`
	Room        Room               `json:"room"`
	Window      chrono.MonthWindow `json:"window"`
	HarvestedAt time.Time          `json:"harvested_at"`
	TotalUsage  float64            `json:"total_usage"`
	Records     int                `json:"records"`
	Partial     bool               `json:"partial"`
}

type HarvestFilter struct {
	// Room restricts the listing to one room when set.
	Room *Room
	// Limit defaults to 50.
	Limit int
}

// ListHarvests returns harvests, most recent first.
func (s Store) ListHarvests(ctx context.Context, filter HarvestFilter) ([]HarvestSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `select
		h.id, h.campus, h.community, h.building, h.room, h.window_start, h.window_end,
		h.harvested_at, h.total_usage, h.partial,
		(select count(*) from usage_record r where r.harvest_id = h.id)
	from harvest h`
	args := []any{}
	if filter.Room != nil {
		query += ` where h.campus = ? and h.community = ? and h.building = ? and h.room = ?`
		args = append(args, filter.Room.Campus, filter.Room.Community, filter.Room.Building, filter.Room.Room)
	}
	query += ` order by h.harvested_at desc, h.id desc limit ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HarvestSummary
	for rows.Next() {
		var summary HarvestSummary
		var windowStart, windowEnd string
		var harvestedAt int64
		err := rows.Scan(
			&summary.Id,
			&summary.Room.Campus,
			&summary.Room.Community,
			&summary.Room.Building,
			&summary.Room.Room,
			&windowStart,
			&windowEnd,
			&harvestedAt,
			&summary.TotalUsage,
			&summary.Partial,
			&summary.Records,
		)
		if err != nil {
			return nil, err
		}
		summary.Window, err = parseWindow(windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		summary.HarvestedAt = time.Unix(harvestedAt, 0).In(chrono.Shanghai())
		out = append(out, summary)
	}
	return out, rows.Err()
}

func parseWindow(start, end string) (chrono.MonthWindow, error) {
	startMonth, err := chrono.ParseYearMonth(start)
	if err != nil {
		return chrono.MonthWindow{}, err
	}
	endMonth, err := chrono.ParseYearMonth(end)
	if err != nil {
		return chrono.MonthWindow{}, err
	}
	return chrono.MonthWindow{Start: startMonth, End: endMonth}, nil
}

// GetHarvest loads a full harvest, the credential of its selection is empty.
func (s Store) GetHarvest(ctx context.Context, id int64) (*elecweb.HarvestResult, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select campus, community, building, room, window_start, window_end, harvested_at,
			total_usage, usage_column, partial, failed_month, headers, overview
		from harvest where id = ?`,
		id,
	)

	result := &elecweb.HarvestResult{}
	var windowStart, windowEnd, headers, overview string
	var harvestedAt int64
	var failedMonth sql.NullString
	err := row.Scan(
		&result.Selection.Campus,
		&result.Selection.Community,
		&result.Selection.Building,
		&result.Selection.Room,
		&windowStart,
		&windowEnd,
		&harvestedAt,
		&result.TotalUsage,
		&result.UsageColumn,
		&result.Partial,
		&failedMonth,
		&headers,
		&overview,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrHarvestNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	result.Window, err = parseWindow(windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	result.HarvestedAt = time.Unix(harvestedAt, 0).In(chrono.Shanghai())
	if failedMonth.Valid {
		month, err := chrono.ParseYearMonth(failedMonth.String)
		if err != nil {
			return nil, err
		}
		result.FailedMonth = &month
	}
	err = json.Unmarshal([]byte(headers), &result.Headers)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal([]byte(overview), &result.Overview)
	if err != nil {
		return nil, err
	}

	result.Records, err = s.records(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Months, err = s.months(ctx, id)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s Store) records(ctx context.Context, id int64) ([]elecweb.UsageRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select year, month, cells from usage_record where harvest_id = ? order by seq`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []elecweb.UsageRecord
	for rows.Next() {
		var record elecweb.UsageRecord
		var month int
		var cells string
		err := rows.Scan(&record.Year, &month, &cells)
		if err != nil {
			return nil, err
		}
		record.Month = time.Month(month)
		err = json.Unmarshal([]byte(cells), &record.Cells)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s Store) months(ctx context.Context, id int64) ([]elecweb.MonthSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select year, month, records, usage, pages from month_summary
		where harvest_id = ? order by year, month`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []elecweb.MonthSummary
	for rows.Next() {
		var summary elecweb.MonthSummary
		var month int
		err := rows.Scan(&summary.Month.Year, &month, &summary.Records, &summary.Usage, &summary.Pages)
		if err != nil {
			return nil, err
		}
		summary.Month.Month = time.Month(month)
		months = append(months, summary)
	}
	return months, rows.Err()
}

type MonthlyUsage struct {
	Month   chrono.YearMonth `json:"month"`
	Usage   float64          `json:"usage"`
	Records int              `json:"records"`
	// HarvestId is the most recent harvest that covered the month.
	HarvestId int64 `json:"harvest_id"`
}

// MonthlyUsage returns the usage of every month ever harvested for `room`, taking each
// month from the most recent harvest that covered it, in chronological order.
func (s Store) MonthlyUsage(ctx context.Context, room Room) ([]MonthlyUsage, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select m.harvest_id, m.year, m.month, m.usage, m.records
		from month_summary m
		join harvest h on h.id = m.harvest_id
		where h.campus = ? and h.community = ? and h.building = ? and h.room = ?
		order by h.harvested_at desc, h.id desc`,
		room.Campus, room.Community, room.Building, room.Room,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[chrono.YearMonth]bool{}
	var out []MonthlyUsage
	for rows.Next() {
		var usage MonthlyUsage
		var month int
		err := rows.Scan(&usage.HarvestId, &usage.Month.Year, &month, &usage.Usage, &usage.Records)
		if err != nil {
			return nil, err
		}
		usage.Month.Month = time.Month(month)
		if seen[usage.Month] {
			continue
		}
		seen[usage.Month] = true
		out = append(out, usage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortMonthly(out)
	return out, nil
}

func sortMonthly(usages []MonthlyUsage) {
	slices.SortFunc(usages, func(a, b MonthlyUsage) int {
		if a.Month.Before(b.Month) {
			return -1
		}
		if b.Month.Before(a.Month) {
			return 1
		}
		return 0
	})
}

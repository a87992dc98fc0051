// Package ingestion loads wide price tables into domain price series.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"contrarian-lab/internal/domain"
)

// ErrMissingColumn is returned when the date column or a required symbol
// column is absent. It is always joined with a *domain.ConfigurationError.
var ErrMissingColumn = errors.New("missing column")

// dateLayouts are tried in order for the date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
	"2006/1/2",
	"20060102",
}

// missingValues are cells read as NaN before forward-fill.
var missingValues = map[string]struct{}{
	"": {}, "nan": {}, "NaN": {}, "NA": {}, "N/A": {}, "#N/A": {}, "null": {}, "-": {}, "--": {},
}

// CSVOptions control how a wide price table is read.
type CSVOptions struct {
	DateColumn string   // header of the timestamp column
	Required   []string // symbol columns that must be present; empty selects all
	ClassOf    func(symbol string) domain.AssetClass
}

type row struct {
	line   int
	time   time.Time
	values []float64
}

// LoadCSVFile opens path and reads it with LoadCSV.
func LoadCSVFile(path string, opts CSVOptions) ([]*domain.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	series, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// LoadCSV reads a wide table with one date column and one price column per
// symbol. Blank rows are dropped, rows are sorted by date, prices are
// forward-filled and columns that never carry a price are dropped.
// Series are returned in header order.
func LoadCSV(r io.Reader, opts CSVOptions) ([]*domain.PriceSeries, error) {
	dateColumn := opts.DateColumn
	if dateColumn == "" {
		dateColumn = "date"
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, missingColumn("data.date_column", dateColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	dateIdx := -1
	index := make(map[string]int, len(header))
	for i, h := range header {
		if h == dateColumn && dateIdx < 0 {
			dateIdx = i
			continue
		}
		if _, dup := index[h]; !dup && h != "" {
			index[h] = i
		}
	}
	if dateIdx < 0 {
		return nil, missingColumn("data.date_column", dateColumn)
	}

	var symbols []string
	if len(opts.Required) > 0 {
		for _, sym := range opts.Required {
			if _, ok := index[sym]; !ok {
				return nil, missingColumn("data.symbols", sym)
			}
		}
		symbols = append(symbols, opts.Required...)
	} else {
		for i, h := range header {
			if i != dateIdx && h != "" && index[h] == i {
				symbols = append(symbols, h)
			}
		}
	}

	var rows []row
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		cell := field(record, dateIdx)
		if cell == "" {
			continue
		}
		ts, err := parseDate(cell)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		values := make([]float64, len(symbols))
		for j, sym := range symbols {
			values[j] = parsePrice(field(record, index[sym]))
		}
		rows = append(rows, row{line: line, time: ts, values: values})
	}

	if err := sortRows(rows); err != nil {
		return nil, err
	}

	out := make([]*domain.PriceSeries, 0, len(symbols))
	for j, sym := range symbols {
		s := &domain.PriceSeries{Symbol: sym, AssetClass: domain.AssetClassDefault}
		if opts.ClassOf != nil {
			s.AssetClass = opts.ClassOf(sym)
		}
		last := math.NaN()
		for _, r := range rows {
			v := r.values[j]
			if math.IsNaN(v) {
				v = last
			}
			last = v
			// leading gaps have nothing to fill from
			if math.IsNaN(v) {
				continue
			}
			s.Points = append(s.Points, domain.PricePoint{Time: r.time, Price: v})
		}
		if len(s.Points) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// sortRows orders rows by date and rejects duplicate dates.
func sortRows(rows []row) error {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].time.Before(rows[j].time)
	})
	for i := 1; i < len(rows); i++ {
		if rows[i].time.Equal(rows[i-1].time) {
			return fmt.Errorf("%w: duplicate date %s on lines %d and %d",
				domain.ErrInvalidSeries, rows[i].time.Format("2006-01-02"), rows[i-1].line, rows[i].line)
		}
	}
	return nil
}

func missingColumn(field, column string) error {
	return fmt.Errorf("%w: %w", ErrMissingColumn, &domain.ConfigurationError{
		Field:  field,
		Reason: fmt.Sprintf("column %q not found", column),
	})
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parsePrice reads a cell as a price. Unparseable cells are missing.
func parsePrice(s string) float64 {
	if _, ok := missingValues[s]; ok {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

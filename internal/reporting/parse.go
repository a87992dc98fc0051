package reporting

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
)

// ErrMalformedTable is returned for a table whose header or cells cannot be read.
var ErrMalformedTable = errors.New("malformed table")

// LoadTables reads the five output tables written for out from dir.
func LoadTables(dir string, out config.OutputConfig) (Tables, error) {
	var t Tables
	var err error

	if t.Summary, err = readFile(dir, out.SummaryCSV, ParseSummaryCSV); err != nil {
		return Tables{}, err
	}
	if t.Equity, err = readFile(dir, out.EquityCSV, ParseEquityCSV); err != nil {
		return Tables{}, err
	}
	if t.Trades, err = readFile(dir, out.TradesCSV, ParseTradesCSV); err != nil {
		return Tables{}, err
	}
	if t.ByAsset, err = readFile(dir, out.ByAssetCSV, ParseByAssetCSV); err != nil {
		return Tables{}, err
	}
	if t.ByFrequency, err = readFile(dir, out.ByFreqCSV, ParseByFrequencyCSV); err != nil {
		return Tables{}, err
	}
	return t, nil
}

func readFile[T any](dir, name string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ParseSummaryCSV reads a metric,value table.
func ParseSummaryCSV(r io.Reader) ([]domain.MetricValue, error) {
	return parse(r, summaryHeader, func(row rowReader) (domain.MetricValue, error) {
		v, err := row.float("value")
		return domain.MetricValue{Metric: row.str("metric"), Value: v}, err
	})
}

// ParseEquityCSV reads an exit_time,equity table.
func ParseEquityCSV(r io.Reader) ([]domain.EquityPoint, error) {
	return parse(r, equityHeader, func(row rowReader) (domain.EquityPoint, error) {
		var p domain.EquityPoint
		var err error
		if p.Time, err = row.time("exit_time"); err != nil {
			return p, err
		}
		p.Value, err = row.float("equity")
		return p, err
	})
}

// ParseTradesCSV reads the trade table. Extra columns are ignored; the
// trade_id column is optional.
func ParseTradesCSV(r io.Reader) ([]domain.Trade, error) {
	required := tradeHeader[:len(tradeHeader)-1]
	return parse(r, required, func(row rowReader) (domain.Trade, error) {
		var t domain.Trade
		t.TradeID = row.str("trade_id")
		t.Symbol = row.str("symbol")
		t.AssetClass = domain.AssetClass(row.str("asset_class"))
		t.Frequency = row.str("freq_label")

		times := []struct {
			col string
			dst *time.Time
		}{
			{"signal_time", &t.FormationTime},
			{"entry_time", &t.EntryTime},
			{"exit_time", &t.ExitTime},
		}
		for _, c := range times {
			v, err := row.time(c.col)
			if err != nil {
				return t, err
			}
			*c.dst = v
		}

		dir, err := row.int("direction")
		if err != nil {
			return t, err
		}
		t.Direction = domain.Direction(dir)
		if t.StreakLen, err = row.int("streak_len"); err != nil {
			return t, err
		}

		floats := []struct {
			col string
			dst *float64
		}{
			{"amplitude", &t.Amplitude},
			{"raw_weight", &t.RawWeight},
			{"trade_return", &t.TradeReturn},
			{"scaled_weight", &t.ScaledWeight},
			{"gross_leverage", &t.GrossLeverageAtEntry},
			{"pnl", &t.PnL},
			{"signed_return", &t.SignedReturn},
		}
		for _, c := range floats {
			v, err := row.float(c.col)
			if err != nil {
				return t, err
			}
			*c.dst = v
		}
		return t, nil
	})
}

// ParseByAssetCSV reads an asset_class,symbol,pnl table.
func ParseByAssetCSV(r io.Reader) ([]domain.AssetBreakdownRow, error) {
	return parse(r, byAssetHeader, func(row rowReader) (domain.AssetBreakdownRow, error) {
		v, err := row.float("pnl")
		return domain.AssetBreakdownRow{
			AssetClass: domain.AssetClass(row.str("asset_class")),
			Symbol:     row.str("symbol"),
			PnL:        v,
		}, err
	})
}

// ParseByFrequencyCSV reads a freq_label,pnl table.
func ParseByFrequencyCSV(r io.Reader) ([]domain.FrequencyBreakdownRow, error) {
	return parse(r, byFreqHeader, func(row rowReader) (domain.FrequencyBreakdownRow, error) {
		v, err := row.float("pnl")
		return domain.FrequencyBreakdownRow{Frequency: row.str("freq_label"), PnL: v}, err
	})
}

// rowReader reads cells of one record by column name.
type rowReader struct {
	line   int
	index  map[string]int
	record []string
}

func (r rowReader) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r rowReader) float(col string) (float64, error) {
	s := r.str(col)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d column %s: %v", ErrMalformedTable, r.line, col, err)
	}
	return v, nil
}

func (r rowReader) int(col string) (int, error) {
	s := r.str(col)
	v, err := strconv.Atoi(s)
	if err != nil {
		// pandas writes integer columns as floats once a NaN appears
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: line %d column %s: %q", ErrMalformedTable, r.line, col, s)
		}
		v = int(f)
	}
	return v, nil
}

func (r rowReader) time(col string) (time.Time, error) {
	s := r.str(col)
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano, time.DateTime} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: line %d column %s: bad time %q", ErrMalformedTable, r.line, col, s)
}

func parse[T any](r io.Reader, required []string, decode func(rowReader) (T, error)) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedTable, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedTable, col)
		}
	}

	var out []T
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTable, line, err)
		}
		v, err := decode(rowReader{line: line, index: index, record: record})
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

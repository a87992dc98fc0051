// Package resample converts a price series into period-end closes.
package resample

import (
	"fmt"
	"math"
	"strings"
	"time"

	"contrarian-lab/internal/domain"
)

// Kind is the calendar unit of a rule.
type Kind int

// Rule kinds.
const (
	KindNone Kind = iota // series is used as-is
	KindDay
	KindWeek
	KindMonth
	KindQuarter
	KindYear
)

// Rule is a parsed resample rule.
type Rule struct {
	Kind    Kind
	WeekEnd time.Weekday // anchor day for KindWeek
	Name    string
}

var weekdays = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

// ParseRule parses a rule string. Supported: "" (none), D, W (= W-SUN),
// W-MON..W-SUN, M/ME, Q/QE, A/Y/YE.
func ParseRule(s string) (Rule, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "":
		return Rule{Kind: KindNone}, nil
	case "D":
		return Rule{Kind: KindDay, Name: name}, nil
	case "W":
		return Rule{Kind: KindWeek, WeekEnd: time.Sunday, Name: name}, nil
	case "M", "ME":
		return Rule{Kind: KindMonth, Name: name}, nil
	case "Q", "QE":
		return Rule{Kind: KindQuarter, Name: name}, nil
	case "A", "Y", "YE":
		return Rule{Kind: KindYear, Name: name}, nil
	}
	if strings.HasPrefix(name, "W-") {
		if wd, ok := weekdays[strings.TrimPrefix(name, "W-")]; ok {
			return Rule{Kind: KindWeek, WeekEnd: wd, Name: name}, nil
		}
	}
	return Rule{}, fmt.Errorf("unknown resample rule %q", s)
}

// PeriodEnd returns the calendar label of the period containing t,
// at midnight in t's location.
func (r Rule) PeriodEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch r.Kind {
	case KindDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case KindWeek:
		ahead := (int(r.WeekEnd) - int(t.Weekday()) + 7) % 7
		return time.Date(y, m, d+ahead, 0, 0, 0, 0, loc)
	case KindMonth:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	case KindQuarter:
		qEnd := ((int(m)-1)/3 + 1) * 3
		return time.Date(y, time.Month(qEnd)+1, 0, 0, 0, 0, 0, loc)
	case KindYear:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, loc)
	default:
		return t
	}
}

// Closes returns the last observed price of every non-empty period, in order.
// Non-finite prices are ignored; a period with none produces no close.
// Input points must be sorted by time.
func Closes(s *domain.PriceSeries, r Rule) []domain.PeriodClose {
	var result []domain.PeriodClose
	var current *domain.PeriodClose

	for _, p := range s.Points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		end := r.PeriodEnd(p.Time)
		if current == nil || !current.PeriodEnd.Equal(end) {
			if current != nil {
				result = append(result, *current)
			}
			current = &domain.PeriodClose{PeriodEnd: end, LastObserved: p.Time, Price: p.Price}
			continue
		}
		// LAST(price) within the period
		current.LastObserved = p.Time
		current.Price = p.Price
	}

	if current != nil {
		result = append(result, *current)
	}
	return result
}

// Series resamples s into a new series labelled by period end.
// KindNone returns a copy of s.
func Series(s *domain.PriceSeries, r Rule) *domain.PriceSeries {
	out := &domain.PriceSeries{Symbol: s.Symbol, AssetClass: s.AssetClass}
	if r.Kind == KindNone {
		out.Points = append([]domain.PricePoint(nil), s.Points...)
		return out
	}
	closes := Closes(s, r)
	out.Points = make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		out.Points[i] = domain.PricePoint{Time: c.PeriodEnd, Price: c.Price}
	}
	return out
}

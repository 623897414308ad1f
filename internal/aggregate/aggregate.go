// Package aggregate groups alerts by interval label into distinct ticker sets.
package aggregate

import (
	"sort"
	"strings"

	"github.com/pmarren/alertline/internal/models"
)

// View maps an interval label to the set of distinct tickers seen for it.
// No ordering is imposed; rendering sorts.
type View map[string]map[string]struct{}

// Field is one rendered interval entry of a view.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// GroupByInterval builds a View from alerts in a single pass. Inserting a
// ticker that is already present for an interval is a no-op.
func GroupByInterval(alerts []models.Alert) View {
	view := make(View)
	for _, alert := range alerts {
		tickers, ok := view[alert.Interval]
		if !ok {
			tickers = make(map[string]struct{})
			view[alert.Interval] = tickers
		}
		tickers[alert.Ticker] = struct{}{}
	}
	return view
}

// Fields renders the view deterministically: interval labels sorted
// lexicographically, tickers sorted and comma-joined.
func (v View) Fields() []Field {
	intervals := make([]string, 0, len(v))
	for interval := range v {
		intervals = append(intervals, interval)
	}
	sort.Strings(intervals)

	fields := make([]Field, 0, len(intervals))
	for _, interval := range intervals {
		tickers := make([]string, 0, len(v[interval]))
		for ticker := range v[interval] {
			tickers = append(tickers, ticker)
		}
		sort.Strings(tickers)
		fields = append(fields, Field{
			Name:   interval,
			Value:  strings.Join(tickers, ","),
			Inline: true,
		})
	}
	return fields
}

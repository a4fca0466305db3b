// Package report turns timings into sorted rows and renders them.
package report

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/grafana/stackscope/pkg/attribution"
	"github.com/grafana/stackscope/pkg/model"
)

type Row struct {
	Key   string  `json:"key"`
	Self  float64 `json:"self"`
	Total float64 `json:"total"`
}

type Report struct {
	Title string `json:"title"`
	// KeyName is the header of the key column: "line", "address", "file".
	KeyName string `json:"key_name"`
	// Weight is the total weight of the selected samples,
	// the base of the percentages.
	Weight float64 `json:"weight"`
	Rows   []Row   `json:"rows"`
}

// Top truncates the rows to the n hottest ones. n <= 0 keeps all rows.
func (r *Report) Top(n int) {
	if n > 0 && len(r.Rows) > n {
		r.Rows = r.Rows[:n]
	}
}

type keyed[K constraints.Ordered] struct {
	key K
	Row
}

// sortRows orders rows by total descending, then by key.
func sortRows[K constraints.Ordered](rows []keyed[K]) []Row {
	slices.SortFunc(rows, func(a, b keyed[K]) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.key, b.key)
	})
	return lo.Map(rows, func(r keyed[K], _ int) Row { return r.Row })
}

// SortRows orders rows by total descending, then by key.
func SortRows(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

// Rows returns a row per key with at least one sample. Self time is
// always part of the total, so total keys cover every key.
func Rows[K constraints.Ordered](t attribution.Timings[K], format func(K) string) []Row {
	rows := make([]keyed[K], 0, t.TotalLen())
	t.EachTotal(func(k K, total float64) {
		rows = append(rows, keyed[K]{key: k, Row: Row{Key: format(k), Self: t.Self(k), Total: total}})
	})
	return sortRows(rows)
}

// TotalRows returns a row per key of a totals map, which carries no
// self time.
func TotalRows[K constraints.Ordered](totals map[K]float64, format func(K) string) []Row {
	rows := lo.MapToSlice(totals, func(k K, total float64) keyed[K] {
		return keyed[K]{key: k, Row: Row{Key: format(k), Total: total}}
	})
	return sortRows(rows)
}

func FormatLine(l model.LineNumber) string { return strconv.Itoa(int(l)) }

func FormatAddress(a model.Address) string { return fmt.Sprintf("0x%x", a) }

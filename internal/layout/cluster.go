// Package layout reconstructs visual table rows from positioned text fragments.
package layout

import (
	"math"
	"sort"
	"strings"
)

// DefaultRowTolerance is a safe row tolerance for 10-11pt statement fonts.
// Callers must keep the tolerance narrower than the minimum real line
// spacing of their source, or adjacent rows will merge.
const DefaultRowTolerance = 3.0

// Fragment is one unit of positioned text extracted from a document page.
type Fragment struct {
	Text   string
	Top    float64
	Bottom float64
	X0     float64
}

// row is a working cluster of fragments judged to lie on the same visual
// line. mean is the running mean of the member tops, updated incrementally
// as fragments join.
type row struct {
	mean    float64
	n       int
	members []Fragment
}

// ClusterPage groups a page's fragments into visual rows and flattens each
// row into a single line string. Fragments may arrive in any order; they
// are scanned top to bottom, and each joins the first existing row whose
// running-mean top is within tolerance, otherwise it starts a new row.
// Rows are emitted top to bottom, fragments within a row left to right,
// joined with single spaces.
func ClusterPage(fragments []Fragment, tolerance float64) []string {
	if tolerance <= 0 {
		tolerance = DefaultRowTolerance
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top < sorted[j].Top })

	var rows []row
	for _, f := range sorted {
		placed := false
		for i := range rows {
			if math.Abs(rows[i].mean-f.Top) < tolerance {
				rows[i].mean = (rows[i].mean*float64(rows[i].n) + f.Top) / float64(rows[i].n+1)
				rows[i].n++
				rows[i].members = append(rows[i].members, f)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, row{mean: f.Top, n: 1, members: []Fragment{f}})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].mean < rows[j].mean })

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.members, func(i, j int) bool { return r.members[i].X0 < r.members[j].X0 })
		parts := make([]string, 0, len(r.members))
		for _, m := range r.members {
			parts = append(parts, m.Text)
		}
		lines = append(lines, CollapseSpaces(strings.Join(parts, " ")))
	}
	return lines
}

// ClusterPages clusters every page independently and concatenates the
// resulting lines in page order.
func ClusterPages(pages [][]Fragment, tolerance float64) []string {
	var lines []string
	for _, page := range pages {
		lines = append(lines, ClusterPage(page, tolerance)...)
	}
	return lines
}

// CollapseSpaces normalizes all internal whitespace runs to single spaces
// and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

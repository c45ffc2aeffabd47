package table

import (
	"sort"
	"strings"

	"shiftfund/pkg/money"
	"shiftfund/pkg/ocr"
)

// valueRightSlack tolerates amounts drifting slightly right of the band.
const valueRightSlack = 50

// lineTolerances are the vertical clustering distances tried; rows sitting on
// a cluster boundary at one tolerance are recovered at the other, and the
// dedup step collapses the overlap.
var lineTolerances = []int{12, 20}

// Row is one reconstructed table entry. Amount is nil when nothing in the
// row's value band parsed as money; that is valid output, not an error.
type Row struct {
	Name       string
	Amount     *int64
	Confidence float64
}

// valueStrategy attempts to read an amount from a row's value band (or, as a
// last resort, the whole line). Strategies are applied in order; the first
// success wins.
type valueStrategy func(band, line []ocr.Token) (int64, bool)

var valueStrategies = []valueStrategy{
	// all value-band tokens joined
	func(band, _ []ocr.Token) (int64, bool) {
		if len(band) == 0 {
			return 0, false
		}
		return money.ParseAmount(joinTexts(band))
	},
	// each band token individually, right to left: amounts are right-aligned
	func(band, _ []ocr.Token) (int64, bool) {
		for i := len(band) - 1; i >= 0; i-- {
			if v, ok := money.ParseAmount(band[i].Text); ok {
				return v, true
			}
		}
		return 0, false
	},
	// last two joined
	func(band, _ []ocr.Token) (int64, bool) {
		if len(band) < 2 {
			return 0, false
		}
		return money.ParseAmount(joinTexts(band[len(band)-2:]))
	},
	// first two joined
	func(band, _ []ocr.Token) (int64, bool) {
		if len(band) < 2 {
			return 0, false
		}
		return money.ParseAmount(joinTexts(band[:2]))
	},
	// whole line as a last resort
	func(_, line []ocr.Token) (int64, bool) {
		return money.ParseAmount(joinTexts(line))
	},
}

// ReconstructRows clusters tokens below the column's top boundary into lines,
// splits each into a name and a value band, parses amounts and deduplicates
// near-identical rows.
func ReconstructRows(tokens []ocr.Token, col Column) []Row {
	var below []ocr.Token
	for _, t := range tokens {
		if t.CenterY() > col.Top {
			below = append(below, t)
		}
	}
	var rows []Row
	for _, tol := range lineTolerances {
		for _, line := range clusterLines(below, tol) {
			if row, ok := rowFromLine(line, col); ok {
				rows = append(rows, row)
			}
		}
	}
	return dedupeRows(rows)
}

// clusterLines groups tokens into lines by vertical proximity to the running
// line mean.
func clusterLines(tokens []ocr.Token, tolerance int) [][]ocr.Token {
	if len(tokens) == 0 {
		return nil
	}
	sorted := make([]ocr.Token, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CenterY() < sorted[j].CenterY() })

	var lines [][]ocr.Token
	var cur []ocr.Token
	curSum := 0
	for _, t := range sorted {
		if len(cur) > 0 && absInt(t.CenterY()-curSum/len(cur)) > tolerance {
			lines = append(lines, cur)
			cur, curSum = nil, 0
		}
		cur = append(cur, t)
		curSum += t.CenterY()
	}
	return append(lines, cur)
}

// rowFromLine splits a line at the column band. Lines with no name tokens are
// non-data lines (page headers, rules) and are dropped.
func rowFromLine(line []ocr.Token, col Column) (Row, bool) {
	sort.Slice(line, func(i, j int) bool { return line[i].CenterX() < line[j].CenterX() })
	var name, band []ocr.Token
	for _, t := range line {
		cx := t.CenterX()
		switch {
		case cx < col.X0:
			name = append(name, t)
		case col.Contains(cx, valueRightSlack):
			band = append(band, t)
		}
	}
	rowName := strings.Join(strings.Fields(joinTexts(name)), " ")
	if rowName == "" {
		return Row{}, false
	}
	row := Row{Name: rowName, Confidence: meanConfidence(band)}
	if len(band) == 0 {
		row.Confidence = meanConfidence(name)
	}
	for _, strat := range valueStrategies {
		if v, ok := strat(band, line); ok {
			row.Amount = &v
			break
		}
	}
	return row, true
}

func joinTexts(tokens []ocr.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func meanConfidence(tokens []ocr.Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

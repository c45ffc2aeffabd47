package table

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"shiftfund/pkg/money"
	"shiftfund/pkg/ocr"
)

const (
	// headerPadRatio widens the header box on each side to form the value band.
	headerPadRatio = 1.2
	// headerTopSlack keeps header-line fragments out of the data rows.
	headerTopSlack = 4
	// fallbackBinWidth buckets money-shaped token centers when no header is found.
	fallbackBinWidth = 40
	// fallbackBandRadius is the half-width of the inferred value band.
	fallbackBandRadius = 120
)

// Column is the x-range holding the amounts, plus the y coordinate data rows
// start below.
type Column struct {
	X0, X1     int
	Top        int
	FromHeader bool
	Confidence float64
}

// Contains reports whether a horizontal center lies in the band, with
// rightward slack for slightly misaligned amounts.
func (c Column) Contains(cx, rightSlack int) bool {
	return cx >= c.X0 && cx <= c.X1+rightSlack
}

// MatchHeader decides whether a token's text reads as the "Needed" column
// header, tolerating OCR substitution noise, and scores the match. The
// shortest branch (4-7 chars containing 'n' and 'd'/'0') is knowingly
// permissive; it scores lowest so real matches always outrank it.
func MatchHeader(text string) (bool, float64) {
	norm := strings.ToLower(strings.Join(strings.Fields(text), ""))
	if norm == "" {
		return false, 0
	}
	switch norm {
	case "needed", "need":
		return true, 1
	}
	if strings.Contains(norm, "need") {
		return true, 0.75
	}
	if levenshtein.ComputeDistance(norm, "needed") <= 2 {
		return true, 0.6
	}
	n := len(norm)
	if n >= 4 && n <= 7 && strings.ContainsRune(norm, 'n') &&
		(strings.ContainsRune(norm, 'd') || strings.ContainsRune(norm, '0')) {
		return true, 0.4
	}
	return false, 0
}

// LocateColumn finds the value column. Primary path: the best tolerant match
// for the "Needed" header defines the band. Fallback: amounts cluster in one
// dense vertical band even when the header was unreadable, so the densest
// 40px bin of money-shaped token centers is taken instead. ok is false only
// when neither path finds anything to anchor on.
func LocateColumn(tokens []ocr.Token) (Column, bool) {
	if col, ok := headerColumn(tokens); ok {
		return col, true
	}
	return inferredColumn(tokens)
}

// headerColumn ranks candidates by match score before OCR confidence: a
// token the matcher trusts more is a better anchor than a sharper-looking
// token matched only by the permissive branch. Confidence and text length
// break the remaining ties.
func headerColumn(tokens []ocr.Token) (Column, bool) {
	var (
		best      ocr.Token
		bestScore float64
		found     bool
	)
	for _, t := range tokens {
		ok, score := MatchHeader(t.Text)
		if !ok {
			continue
		}
		replace := !found ||
			score > bestScore ||
			(score == bestScore && t.Confidence > best.Confidence) ||
			(score == bestScore && t.Confidence == best.Confidence && len(t.Text) > len(best.Text))
		if replace {
			best, bestScore, found = t, score, true
		}
	}
	if !found {
		return Column{}, false
	}
	w := best.Box.Dx()
	pad := int(headerPadRatio * float64(w))
	return Column{
		X0:         best.Box.Min.X - pad,
		X1:         best.Box.Max.X + pad,
		Top:        best.Box.Max.Y + headerTopSlack,
		FromHeader: true,
		Confidence: bestScore,
	}, true
}

func inferredColumn(tokens []ocr.Token) (Column, bool) {
	bins := map[int][]int{}
	for _, t := range tokens {
		if !money.Shaped(t.Text) {
			continue
		}
		cx := t.CenterX()
		bins[cx/fallbackBinWidth] = append(bins[cx/fallbackBinWidth], cx)
	}
	bestBin, bestCount := 0, 0
	for bin, centers := range bins {
		if len(centers) > bestCount || (len(centers) == bestCount && bin < bestBin) {
			bestBin, bestCount = bin, len(centers)
		}
	}
	if bestCount == 0 {
		return Column{}, false
	}
	centers := bins[bestBin]
	sort.Ints(centers)
	med := centers[len(centers)/2]
	return Column{
		X0:         med - fallbackBandRadius,
		X1:         med + fallbackBandRadius,
		Top:        0,
		FromHeader: false,
		Confidence: 0.3,
	}, true
}

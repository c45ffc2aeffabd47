package pipeline

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shiftfund/pkg/ocr"
	"shiftfund/pkg/shift"
	"shiftfund/pkg/target"
)

func testPipeline(t *testing.T) (*Pipeline, *time.Location) {
	t.Helper()
	cal, err := shift.NewCalendar("Asia/Jakarta")
	require.NoError(t, err)
	return New(ocr.NewEngine("eng"), cal), cal.Location()
}

func tok(text string, x0, y0, x1, y1 int, conf float64) ocr.Token {
	return ocr.Token{Text: text, Confidence: conf, Box: image.Rect(x0, y0, x1, y1)}
}

func tableTokens() []ocr.Token {
	return []ocr.Token{
		tok("Name", 10, 10, 70, 30, 90),
		tok("Needed", 300, 10, 380, 30, 92),
		tok("Alice", 10, 60, 60, 80, 90),
		tok("$50.00", 310, 60, 370, 80, 88),
		tok("Bob", 10, 100, 50, 120, 91),
		tok("$0", 330, 100, 350, 120, 85),
	}
}

func TestEvaluateEndToEnd(t *testing.T) {
	p, loc := testPipeline(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := p.Evaluate(tableTokens(), "Name Needed Alice $50.00 Bob $0", now, Options{DaysOverride: 4})
	require.NoError(t, err)

	require.Len(t, res.Parse.Rows, 2)
	require.EqualValues(t, 5000, res.Parse.TotalMinor)
	// every amount-bearing row contributes one needed value
	require.Len(t, res.Parse.NeededValues, 2)

	require.Equal(t, 4, res.Target.DaysLeft)
	require.EqualValues(t, 1250, res.Target.DailyTargetMinor)
	require.Equal(t, shift.Day, res.Target.Shift.Current)
}

func TestEvaluateZeroTokensIsEmptyResult(t *testing.T) {
	p, loc := testPipeline(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := p.Evaluate(nil, "", now, Options{DaysOverride: 2})
	require.NoError(t, err)
	require.Empty(t, res.Parse.Rows)
	require.EqualValues(t, 0, res.Parse.TotalMinor)
	require.EqualValues(t, 0, res.Target.DailyTargetMinor)
}

func TestEvaluateAppliesAdjustment(t *testing.T) {
	p, loc := testPipeline(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := p.Evaluate(tableTokens(), "", now, Options{DaysOverride: 1, AddMajor: 25})
	require.NoError(t, err)
	require.EqualValues(t, -2500, res.AdjustmentMinor)
	require.EqualValues(t, 2500, res.Target.RemainingMinor)
}

func TestEvaluateMissingDeadline(t *testing.T) {
	p, loc := testPipeline(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	_, err := p.Evaluate(tableTokens(), "", now, Options{})
	require.ErrorIs(t, err, target.ErrNoDeadline)
}

package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"shiftfund/pkg/ocr"
	"shiftfund/pkg/shift"
	"shiftfund/pkg/table"
	"shiftfund/pkg/target"
)

// Options carries the per-invocation configuration handed in by the caller.
type Options struct {
	Deadline        *shift.Date
	DaysOverride    int
	AddMajor        float64 // operator: money physically added
	RemoveMajor     float64 // operator: money physically removed
	ResetAdjustment bool
	AdjustmentMinor int64 // previously persisted accumulator
}

// ParseResult is the reconstructed table.
type ParseResult struct {
	Rows         []table.Row
	TotalMinor   int64
	NeededValues []int64
	Transcript   string // longest pass transcription, diagnostics only
}

// Result is the full outcome of one invocation. Value objects only; nothing
// survives the call.
type Result struct {
	Parse           ParseResult
	AdjustmentMinor int64 // accumulator after applying the options
	Target          target.Result
}

// Pipeline wires recognition, table reconstruction and target math. It holds
// no per-invocation state.
type Pipeline struct {
	Engine  *ocr.Engine
	Targets *target.Calculator
}

// New assembles a pipeline over a shared recognition engine and calendar.
func New(engine *ocr.Engine, cal *shift.Calendar) *Pipeline {
	return &Pipeline{Engine: engine, Targets: &target.Calculator{Cal: cal}}
}

// Run recognizes the image and evaluates it. Recognition failure aborts the
// invocation; everything after recognition is fallback logic that never
// errors except for missing deadline configuration.
func (p *Pipeline) Run(ctx context.Context, image []byte, opts Options) (*Result, error) {
	passes, err := p.Engine.RunPasses(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("recognition: %w", err)
	}
	tokenSets := make([][]ocr.Token, len(passes))
	texts := make([]string, len(passes))
	for i, pass := range passes {
		tokenSets[i] = pass.Tokens
		texts[i] = pass.Text
	}
	tokens := ocr.MergeTokens(tokenSets)
	return p.Evaluate(tokens, ocr.MergeText(texts), p.Targets.Cal.Now(), opts)
}

// Evaluate reconstructs rows from an already-merged token set and derives
// targets. Split from Run so the table and target stages are exercisable
// without a recognition engine.
func (p *Pipeline) Evaluate(tokens []ocr.Token, transcript string, now time.Time, opts Options) (*Result, error) {
	parse := ParseResult{Transcript: transcript}
	if col, ok := table.LocateColumn(tokens); ok {
		parse.Rows = table.ReconstructRows(tokens, col)
		for _, row := range parse.Rows {
			if row.Amount != nil {
				parse.NeededValues = append(parse.NeededValues, *row.Amount)
				parse.TotalMinor += *row.Amount
			}
		}
	}
	log.Printf("pipeline rows=%d values=%d total=%d", len(parse.Rows), len(parse.NeededValues), parse.TotalMinor)

	adj := target.ApplyAdjustment(opts.AdjustmentMinor, opts.AddMajor, opts.RemoveMajor, opts.ResetAdjustment)
	tgt, err := p.Targets.Compute(now, target.Input{
		TotalMinor:      parse.TotalMinor,
		AdjustmentMinor: adj,
		Deadline:        opts.Deadline,
		DaysOverride:    opts.DaysOverride,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Parse: parse, AdjustmentMinor: adj, Target: tgt}, nil
}

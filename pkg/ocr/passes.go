package ocr

import (
	"context"
	"log"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/errgroup"
)

// Table screenshots vary in cell spacing; a single segmentation strategy
// systematically misses some columns. Three passes cover the layouts seen in
// practice: one dense uniform block, sparse/gapped text, and a single column.
var passModes = []gosseract.PageSegMode{
	gosseract.PSM_SINGLE_BLOCK,
	gosseract.PSM_SPARSE_TEXT,
	gosseract.PSM_SINGLE_COLUMN,
}

// Pass is the output of one segmentation-mode recognition run.
type Pass struct {
	Mode   gosseract.PageSegMode
	Tokens []Token
	Text   string
}

// RunPasses preprocesses the image once and fans the segmentation passes out
// concurrently over the same bytes. A failed pass fails the whole call:
// downstream arithmetic must not silently run on a partial token set.
func (e *Engine) RunPasses(ctx context.Context, img []byte) ([]Pass, error) {
	prepared, err := prepareImage(img)
	if err != nil {
		return nil, err
	}
	passes := make([]Pass, len(passModes))
	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range passModes {
		g.Go(func() error {
			tokens, text, err := e.Recognize(gctx, prepared, mode)
			if err != nil {
				return err
			}
			passes[i] = Pass{Mode: mode, Tokens: tokens, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	total := 0
	for _, p := range passes {
		total += len(p.Tokens)
	}
	log.Printf("ocr passes=%d tokens=%d", len(passes), total)
	return passes, nil
}

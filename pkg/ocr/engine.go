package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"shiftfund/pkg/money"
)

// lowConfidenceFloor is the confidence below which generic single-character
// tokens are dropped. Money-shaped or multi-character tokens are kept even
// below it: recall of financial figures matters more than text noise.
const lowConfidenceFloor = 25.0

// Engine wraps Tesseract. It is safe for concurrent use: each recognition
// call runs its own gosseract client, and initialization (a probe that
// verifies the installed language data) happens at most once.
type Engine struct {
	language string

	initOnce sync.Once
	initErr  error
}

// NewEngine builds an engine for the given Tesseract language ("eng" default).
func NewEngine(language string) *Engine {
	if language == "" {
		language = "eng"
	}
	return &Engine{language: language}
}

// ensureInit verifies the language data once. Concurrent callers share the
// same in-flight initialization via sync.Once.
func (e *Engine) ensureInit() error {
	e.initOnce.Do(func() {
		probe := gosseract.NewClient()
		defer probe.Close()
		if err := probe.SetLanguage(e.language); err != nil {
			e.initErr = fmt.Errorf("tesseract language %q: %w", e.language, err)
		}
	})
	return e.initErr
}

// Recognize runs one segmentation-mode pass over the image bytes and returns
// word tokens plus the whole-image transcript. Engine failure is returned to
// the caller unchanged; there is no retry here.
func (e *Engine) Recognize(ctx context.Context, img []byte, mode gosseract.PageSegMode) ([]Token, string, error) {
	if err := e.ensureInit(); err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.language); err != nil {
		return nil, "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return nil, "", fmt.Errorf("set segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, "", fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, "", fmt.Errorf("word boxes: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, "", fmt.Errorf("transcript: %w", err)
	}
	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		tok := Token{Text: strings.TrimSpace(b.Word), Confidence: b.Confidence, Box: b.Box}
		if keepToken(tok) {
			tokens = append(tokens, tok)
		}
	}
	return tokens, text, nil
}

// keepToken drops empty tokens and low-confidence noise that is neither
// money-shaped nor multi-character.
func keepToken(t Token) bool {
	if t.Text == "" {
		return false
	}
	if t.Confidence >= lowConfidenceFloor {
		return true
	}
	return money.Shaped(t.Text) || len([]rune(t.Text)) > 1
}

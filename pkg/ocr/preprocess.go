package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// prepareImage applies light preprocessing before recognition: grayscale,
// a gentle contrast/sharpen boost, and upscaling of small screenshots.
// Hard binarization is deliberately not applied: it shifts glyph boxes and
// the row reconstruction relies on geometry staying faithful.
func prepareImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 900 {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

package ocr

import "image"

// Token is one recognized word: text, engine confidence (0-100) and its
// bounding box in image coordinates. Tokens are merged, never mutated.
type Token struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// CenterX returns the horizontal center of the token's box.
func (t Token) CenterX() int { return (t.Box.Min.X + t.Box.Max.X) / 2 }

// CenterY returns the vertical center of the token's box.
func (t Token) CenterY() int { return (t.Box.Min.Y + t.Box.Max.Y) / 2 }

package ocr

import (
	"sort"
	"strings"
)

// mergeGrid is the coarse spatial resolution (px) used to decide that two
// passes saw the same word.
const mergeGrid = 10

type bucketKey struct {
	gx, gy int
	text   string
}

// MergeTokens combines the token streams of several segmentation passes into
// one deduplicated set. Tokens landing in the same coarse spatial bucket with
// the same lowercased text collapse to the highest-confidence variant; a
// second scan re-adds true positives only one pass detected, i.e. tokens with
// no kept textual match within a vertical mergeGrid distance.
func MergeTokens(passes [][]Token) []Token {
	kept := map[bucketKey]Token{}
	for _, pass := range passes {
		for _, t := range pass {
			k := bucketKey{t.CenterX() / mergeGrid, t.CenterY() / mergeGrid, strings.ToLower(t.Text)}
			if cur, ok := kept[k]; !ok || t.Confidence > cur.Confidence {
				kept[k] = t
			}
		}
	}
	out := make([]Token, 0, len(kept))
	centersByText := map[string][]int{}
	for _, t := range kept {
		out = append(out, t)
		low := strings.ToLower(t.Text)
		centersByText[low] = append(centersByText[low], t.CenterY())
	}
	for _, pass := range passes {
		for _, t := range pass {
			low := strings.ToLower(t.Text)
			matched := false
			for _, y := range centersByText[low] {
				if absInt(y-t.CenterY()) <= mergeGrid {
					matched = true
					break
				}
			}
			if !matched {
				out = append(out, t)
				centersByText[low] = append(centersByText[low], t.CenterY())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CenterY() != out[j].CenterY() {
			return out[i].CenterY() < out[j].CenterY()
		}
		if out[i].CenterX() != out[j].CenterX() {
			return out[i].CenterX() < out[j].CenterX()
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// MergeText picks the longest whole-image transcription for diagnostics.
func MergeText(texts []string) string {
	best := ""
	for _, t := range texts {
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

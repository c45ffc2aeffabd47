package money

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// All monetary math uses integer minor units (cents). Parsing is tolerant of
// OCR noise: currency markers, grouping separators and the common digit
// confusions are normalized before the strict digits[.digits] check.

var amountRE = regexp.MustCompile(`^([0-9]+)(?:\.([0-9]{0,3}))?$`)

// currencyWords are textual markers stripped case-insensitively before parsing.
var currencyWords = []string{"idr", "rp", "usd", "eur", "gbp"}

// confusions maps glyphs Tesseract habitually swaps for digits.
var confusions = strings.NewReplacer(
	"O", "0", "o", "0",
	"I", "1", "i", "1", "l", "1", "|", "1",
	"S", "5", "s", "5",
)

// ParseAmount converts noisy monetary text into minor units.
// Returns ok=false for anything that does not reduce to digits[.digits];
// callers treat that as "no value found", never as a failure.
func ParseAmount(text string) (int64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	low := strings.ToLower(s)
	for _, w := range currencyWords {
		low = strings.ReplaceAll(low, w, "")
	}
	// symbols and whitespace
	low = strings.Map(func(r rune) rune {
		switch r {
		case '$', '£', '€', '¥', '₹', '₽', ' ', '\t':
			return -1
		}
		return r
	}, low)
	neg := strings.HasPrefix(low, "-")
	low = strings.TrimPrefix(low, "-")
	low = confusions.Replace(low)
	// thousands separators: commas always group; trailing ".ddd" stays as a
	// fractional candidate, any earlier dots are grouping noise.
	low = strings.ReplaceAll(low, ",", "")
	if n := strings.Count(low, "."); n > 1 {
		last := strings.LastIndex(low, ".")
		low = strings.ReplaceAll(low[:last], ".", "") + low[last:]
	}
	m := amountRE.FindStringSubmatch(low)
	if m == nil {
		return 0, false
	}
	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	frac := m[2]
	switch len(frac) {
	case 0:
		frac = "00"
	case 1:
		frac += "0"
	case 3:
		frac = frac[:2]
	}
	fracVal, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, false
	}
	minor := whole*100 + fracVal
	if neg {
		minor = -minor
	}
	return minor, true
}

// Format renders minor units with a currency symbol, thousands grouping and
// exactly two fractional digits, e.g. Format(123456, "$") == "$1,234.56".
func Format(minor int64, symbol string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := strconv.FormatInt(minor/100, 10)
	return sign + symbol + group(whole) + "." + pad2(minor%100)
}

// ToMinorUnits converts a major-unit amount (e.g. operator input "25.00")
// to minor units, rounding to nearest.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// Shaped reports whether a token looks monetary: it contains a digit or a
// currency marker. Used to bias low-confidence OCR filtering toward figures.
func Shaped(text string) bool {
	for _, r := range text {
		if r >= '0' && r <= '9' {
			return true
		}
		switch r {
		case '$', '£', '€', '¥', '₹', '₽':
			return true
		}
	}
	low := strings.ToLower(text)
	return strings.Contains(low, "rp") || strings.Contains(low, "idr")
}

func group(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var parts []string
	for n > 3 {
		parts = append([]string{digits[n-3:]}, parts...)
		digits = digits[:n-3]
		n = len(digits)
	}
	return strings.Join(append([]string{digits}, parts...), ",")
}

func pad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}

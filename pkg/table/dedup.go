package table

import "strings"

// Row dedup runs as a pure grouping step: rows are placed into similarity
// groups and each group elects one representative, so the outcome does not
// depend on iteration order quirks.

// dedupeRows merges rows whose normalized names are equal, or where one name
// is a near-length substring of the other and the amounts do not disagree.
func dedupeRows(rows []Row) []Row {
	var groups [][]Row
	for _, r := range rows {
		placed := false
		for i := range groups {
			if sameEntry(groups[i][0], r) {
				groups[i] = append(groups[i], r)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []Row{r})
		}
	}
	out := make([]Row, 0, len(groups))
	for _, g := range groups {
		out = append(out, representative(g))
	}
	return out
}

// sameEntry reports whether two rows describe the same table entry.
func sameEntry(a, b Row) bool {
	an, bn := normalizeName(a.Name), normalizeName(b.Name)
	if an == bn {
		return amountsAgree(a, b)
	}
	short, long := an, bn
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(long)-len(short) > 2 || !strings.Contains(long, short) {
		return false
	}
	return amountsAgree(a, b)
}

// amountsAgree holds when both amounts are equal or at least one is missing.
func amountsAgree(a, b Row) bool {
	if a.Amount == nil || b.Amount == nil {
		return true
	}
	return *a.Amount == *b.Amount
}

// representative keeps the higher-confidence variant, preferring one that
// carries an amount on ties.
func representative(g []Row) Row {
	best := g[0]
	for _, r := range g[1:] {
		switch {
		case r.Confidence > best.Confidence:
			best = r
		case r.Confidence == best.Confidence && best.Amount == nil && r.Amount != nil:
			best = r
		}
	}
	return best
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

package textbudget

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Marker is appended to every truncated text.
const Marker = "..."

// Exceeds reports whether text weighs more than maxWeight.
func Exceeds(text string, maxWeight int, w WeightFunc) bool {
	return w(text) > maxWeight
}

// Fit returns text unchanged when it fits within maxWeight. Otherwise it keeps
// the longest run of leading grapheme clusters that, measured together with
// Marker, stays within maxWeight, and appends Marker.
//
// When maxWeight is smaller than the marker itself the result is Marker alone,
// which still exceeds the budget; callers posting to a real platform never
// pass such budgets.
func Fit(text string, maxWeight int, w WeightFunc) string {
	if w(text) <= maxWeight {
		return text
	}
	kept := shrink(Prefix(text, maxWeight-w(Marker), w), func(p string) bool {
		return w(p+Marker) <= maxWeight
	})
	return kept + Marker
}

// FitFramed fits body between a fixed header and footer. The header and
// footer are kept whole; only body is shortened. The result is
// header + body + footer when everything fits, and
// header + truncated body + Marker + footer otherwise.
func FitFramed(header, body, footer string, maxWeight int, w WeightFunc) string {
	full := header + body + footer
	if w(full) <= maxWeight {
		return full
	}
	available := maxWeight - w(header+footer) - w(Marker)
	kept := shrink(Prefix(body, available, w), func(p string) bool {
		return w(header+p+Marker+footer) <= maxWeight
	})
	return header + kept + Marker + footer
}

// shrink drops trailing grapheme clusters from prefix until fits accepts it.
// Weights are not always additive: a link counts URLWeight as a whole, so a
// cut inside one can weigh more than its clusters summed. Returns "" when no
// prefix fits.
func shrink(prefix string, fits func(string) bool) string {
	if fits(prefix) {
		return prefix
	}
	var ends []int
	g := uniseg.NewGraphemes(prefix)
	for g.Next() {
		_, to := g.Positions()
		ends = append(ends, to)
	}
	for i := len(ends) - 2; i >= 0; i-- {
		if fits(prefix[:ends[i]]) {
			return prefix[:ends[i]]
		}
	}
	return ""
}

// Prefix returns the longest leading run of grapheme clusters of text whose
// summed weight is at most budget. A negative budget yields "".
func Prefix(text string, budget int, w WeightFunc) string {
	if budget <= 0 {
		return ""
	}
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		cw := w(cluster)
		if used+cw > budget {
			break
		}
		b.WriteString(cluster)
		used += cw
	}
	return b.String()
}

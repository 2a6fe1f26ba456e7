// Package textbudget measures posts the way X counts them and trims them to fit.
package textbudget

import (
	"regexp"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// MaxWeight is the weighted length limit of a single post.
const MaxWeight = 280

// URLWeight is the fixed weight of any link after the platform shortens it.
const URLWeight = 23

// WeightFunc returns the weighted length of a text.
type WeightFunc func(string) int

// Code point ranges that count as a single unit. Everything else counts two.
var lightRanges = [][2]rune{
	{0x0000, 0x10FF},
	{0x2000, 0x200D},
	{0x2010, 0x201F},
	{0x2032, 0x2037},
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// WeightedLength returns the platform weight of text. The text is NFC
// normalized, links count URLWeight, an emoji grapheme counts 2, and other
// code points count 1 or 2 depending on their range.
func WeightedLength(text string) int {
	text = norm.NFC.String(text)
	total := 0
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		total += clusterWeights(text[last:loc[0]])
		total += URLWeight
		last = loc[1]
	}
	return total + clusterWeights(text[last:])
}

func clusterWeights(text string) int {
	total := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		total += clusterWeight(g.Runes())
	}
	return total
}

func clusterWeight(runes []rune) int {
	if isEmoji(runes) {
		return 2
	}
	w := 0
	for _, r := range runes {
		w += runeWeight(r)
	}
	return w
}

func runeWeight(r rune) int {
	for _, rg := range lightRanges {
		if r >= rg[0] && r <= rg[1] {
			return 1
		}
	}
	return 2
}

// isEmoji reports whether a grapheme cluster renders as an emoji: it carries
// an emoji presentation selector or a zero-width joiner, starts with a
// pictographic code point, or is a keycap sequence.
func isEmoji(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	for _, r := range runes[1:] {
		if r == 0xFE0F || r == 0x200D || r == 0x20E3 {
			return true
		}
	}
	return isPictographic(runes[0])
}

func isPictographic(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // symbols, emoticons, transport, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r == 0x00A9 || r == 0x00AE || r == 0x203C || r == 0x2049:
		return true
	}
	return false
}

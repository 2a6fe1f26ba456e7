package textbudget

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perRune(s string) int { return utf8.RuneCountInString(s) }

func TestFit_NoOpWhenWithinBudget(t *testing.T) {
	for _, text := range []string{"", "hello", strings.Repeat("A", 280), "오늘의 운세 🔮"} {
		assert.Equal(t, text, Fit(text, 280, WeightedLength))
	}
}

func TestFit_AlphabetScenario(t *testing.T) {
	text := strings.Repeat("A", 300)
	got := Fit(text, 280, perRune)

	assert.Equal(t, strings.Repeat("A", 277)+"...", got)
	assert.Equal(t, 280, perRune(got))
}

func TestFit_WideCharacters(t *testing.T) {
	text := strings.Repeat("가", 200) // weight 400
	got := Fit(text, MaxWeight, WeightedLength)

	assert.Equal(t, strings.Repeat("가", 138)+Marker, got)
	assert.Equal(t, 279, WeightedLength(got))
}

func TestFit_KeepsGraphemesWhole(t *testing.T) {
	family := "👨‍👩‍👧" // one cluster, several code points
	text := strings.Repeat(family, 10)

	got := Fit(text, 9, WeightedLength)
	require.True(t, strings.HasSuffix(got, Marker))
	prefix := strings.TrimSuffix(got, Marker)
	assert.Equal(t, strings.Repeat(family, 3), prefix)
	assert.True(t, utf8.ValidString(got))
}

func TestFit_BudgetSmallerThanMarker(t *testing.T) {
	assert.Equal(t, Marker, Fit("abcdef", 2, perRune))
	assert.Equal(t, Marker, Fit("abcdef", 0, perRune))
	assert.Equal(t, Marker, Fit("abcdef", 3, perRune))
	assert.Equal(t, "a"+Marker, Fit("abcdef", 4, perRune))
}

func TestFitFramed_HeaderFooterScenario(t *testing.T) {
	header := "[1위: X]\n"
	footer := "\n\n🍀 아이템: Y"
	body := strings.Repeat("나", 500)

	got := FitFramed(header, body, footer, MaxWeight, WeightedLength)

	require.True(t, strings.HasPrefix(got, header))
	require.True(t, strings.HasSuffix(got, Marker+footer))
	middle := strings.TrimSuffix(strings.TrimPrefix(got, header), Marker+footer)
	assert.True(t, strings.HasPrefix(body, middle))
	assert.NotEmpty(t, middle)
	assert.LessOrEqual(t, WeightedLength(got), MaxWeight)
}

func TestFitFramed_NoOpWhenWithinBudget(t *testing.T) {
	got := FitFramed("[h]\n", "short body", "\n[f]", MaxWeight, WeightedLength)
	assert.Equal(t, "[h]\nshort body\n[f]", got)
}

func TestFit_CutInsideLink(t *testing.T) {
	// Greedy per-cluster weight keeps "https://exa", which weighs a whole link.
	text := strings.Repeat("A", 265) + " https://example.com/some/long/path/here"
	got := Fit(text, MaxWeight, WeightedLength)

	assert.LessOrEqual(t, WeightedLength(got), MaxWeight)
	assert.Equal(t, strings.Repeat("A", 265)+" https:/"+Marker, got)
}

func TestFitFramed_CutInsideLink(t *testing.T) {
	header := "[1위: X]\n"
	footer := "\n\n🍀 행운의 아이템: Y"
	body := strings.Repeat("가", 118) + " https://t.co/abcdefghijklmnop"

	got := FitFramed(header, body, footer, MaxWeight, WeightedLength)

	assert.LessOrEqual(t, WeightedLength(got), MaxWeight)
	require.True(t, strings.HasPrefix(got, header))
	require.True(t, strings.HasSuffix(got, Marker+footer))
	middle := strings.TrimSuffix(strings.TrimPrefix(got, header), Marker+footer)
	assert.True(t, strings.HasPrefix(body, middle))
}

func TestShrink_PerRuneWeightsKeepGreedyPrefix(t *testing.T) {
	fits := func(p string) bool { return perRune(p) <= 4 }
	assert.Equal(t, "abcd", shrink("abcd", fits))
	assert.Equal(t, "abcd", shrink("abcdef", fits))
	assert.Equal(t, "", shrink("abc", func(string) bool { return false }))
}

func TestExceeds(t *testing.T) {
	assert.False(t, Exceeds(strings.Repeat("a", 280), MaxWeight, WeightedLength))
	assert.True(t, Exceeds(strings.Repeat("a", 281), MaxWeight, WeightedLength))
	assert.True(t, Exceeds(strings.Repeat("가", 141), MaxWeight, WeightedLength))
}

var alphabet = []string{"a", "Z", " ", "\n", "7", "가", "힣", "木", "🍀", "☀️", "👍🏽", "👨‍👩‍👧", "é", "—", "℃",
	" https://example.com/x ", "http://a.b", "https://t.co/"}

func randomText(rng *rand.Rand) string {
	n := rng.Intn(400)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(alphabet[rng.Intn(len(alphabet))])
	}
	return b.String()
}

func TestFit_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(410))
	for i := 0; i < 500; i++ {
		text := randomText(rng)
		maxWeight := 3 + rng.Intn(400)

		got := Fit(text, maxWeight, WeightedLength)

		assert.LessOrEqual(t, WeightedLength(got), maxWeight, "text=%q max=%d", text, maxWeight)
		assert.Equal(t, got, Fit(got, maxWeight, WeightedLength), "fit must be idempotent")
		if got != text {
			assert.True(t, strings.HasPrefix(text, strings.TrimSuffix(got, Marker)))
		}
	}
}

func TestFitFramed_Properties(t *testing.T) {
	header := "[1위: X]\n"
	footer := "\n\n🍀 행운의 아이템: Y"
	frame := WeightedLength(header+footer) + WeightedLength(Marker)

	rng := rand.New(rand.NewSource(280))
	for i := 0; i < 500; i++ {
		body := randomText(rng)
		maxWeight := frame + rng.Intn(300)

		got := FitFramed(header, body, footer, maxWeight, WeightedLength)

		assert.LessOrEqual(t, WeightedLength(got), maxWeight, "body=%q max=%d", body, maxWeight)
		require.True(t, strings.HasPrefix(got, header))
		require.True(t, strings.HasSuffix(got, footer))
		if got != header+body+footer {
			middle := strings.TrimSuffix(strings.TrimPrefix(got, header), Marker+footer)
			assert.True(t, strings.HasPrefix(body, middle), "body=%q got=%q", body, got)
		}
	}
}

func TestFit_KeptPrefixShrinksWithBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		text := randomText(rng)
		prev := uniseg.GraphemeClusterCount(text)
		for maxWeight := 400; maxWeight >= 3; maxWeight-- {
			got := Fit(text, maxWeight, WeightedLength)
			kept := uniseg.GraphemeClusterCount(got)
			if got != text {
				kept = uniseg.GraphemeClusterCount(strings.TrimSuffix(got, Marker))
			}
			require.LessOrEqual(t, kept, prev, "max=%d", maxWeight)
			prev = kept
		}
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", Prefix("abc", -5, perRune))
	assert.Equal(t, "ab", Prefix("abc", 2, perRune))
	assert.Equal(t, "abc", Prefix("abc", 10, perRune))
}

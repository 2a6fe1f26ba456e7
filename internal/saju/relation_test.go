package saju

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableIsConsistent(t *testing.T) {
	require.NoError(t, CheckTable())
}

func TestRelate_Peers(t *testing.T) {
	for _, a := range Stems() {
		for _, b := range Stems() {
			if a.Phase() != b.Phase() {
				continue
			}
			got, err := Relate(a, b)
			require.NoError(t, err)
			if a.Polarity() == b.Polarity() {
				assert.Equal(t, PeerSame, got, "%s vs %s", a, b)
			} else {
				assert.Equal(t, PeerCross, got, "%s vs %s", a, b)
			}
		}
	}
}

func TestRelate_ExhaustiveTable(t *testing.T) {
	counts := make(map[Relation]int)
	for _, a := range Stems() {
		for _, b := range Stems() {
			got, err := Relate(a, b)
			require.NoError(t, err, "%s vs %s", a, b)
			require.True(t, got.Valid(), "%s vs %s gave %d", a, b, got)
			counts[got]++
		}
	}
	// Every subject meets each relation exactly once across the ten references.
	require.Len(t, counts, RelationCount)
	for r, n := range counts {
		assert.Equal(t, StemCount, n, "relation %s", r)
	}
}

func TestRelate_WoodToFire(t *testing.T) {
	got, err := Relate(Gap, Byeong)
	require.NoError(t, err)
	assert.Equal(t, OutputSame, got)
	assert.Equal(t, "output-same", got.String())

	got, err = Relate(Gap, Jeong)
	require.NoError(t, err)
	assert.Equal(t, OutputCross, got)
}

func TestRelate_IsNotSymmetric(t *testing.T) {
	forward := MustRelate(Gap, Byeong)
	backward := MustRelate(Byeong, Gap)
	assert.Equal(t, OutputSame, forward)
	assert.Equal(t, IndirectSupport, backward)
	assert.NotEqual(t, forward, backward)
}

func TestRelate_KnownPairs(t *testing.T) {
	tests := []struct {
		subject, reference Stem
		want               Relation
		korean             string
	}{
		{Gap, Mu, ControlledWealth, "편재"},
		{Gap, Gi, DirectWealth, "정재"},
		{Gap, Gyeong, IndirectAuthority, "편관"},
		{Gap, Sin, DirectAuthority, "정관"},
		{Gap, Im, IndirectSupport, "편인"},
		{Gap, Gye, DirectSupport, "정인"},
		{Gyeong, Gap, ControlledWealth, "편재"},
		{Im, Jeong, DirectWealth, "정재"},
		{Mu, Eul, DirectAuthority, "정관"},
		{Byeong, Gi, OutputCross, "상관"},
		{Gyeong, Sin, PeerCross, "겁재"},
	}
	for _, tt := range tests {
		t.Run(tt.subject.String()+"_"+tt.reference.String(), func(t *testing.T) {
			got, err := Relate(tt.subject, tt.reference)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.korean, got.Korean())
		})
	}
}

func TestRelate_RejectsInvalidStem(t *testing.T) {
	_, err := Relate(Stem(10), Gap)
	assert.True(t, errors.Is(err, ErrInvalidStem))

	_, err = Relate(Gap, Stem(200))
	assert.True(t, errors.Is(err, ErrInvalidStem))
}

func TestRelate_IncompleteTableIsAnError(t *testing.T) {
	broken := defaultTable
	broken[Wood][Generates] = Wood // Fire is now unreachable from Wood

	_, err := broken.relate(Gap, Byeong)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteTable))
	assert.True(t, errors.Is(broken.check(), ErrIncompleteTable))
}

func TestCheckTable_DetectsDuplicateTarget(t *testing.T) {
	broken := defaultTable
	broken[Fire][Overcomes] = Water
	assert.Error(t, broken.check())
}

func TestMustRelate_PanicsOnInvalidStem(t *testing.T) {
	assert.Panics(t, func() { MustRelate(Stem(42), Gap) })
}

func TestFollow(t *testing.T) {
	for p := Wood; p < phaseCount; p++ {
		// Generating then being generated by returns to the start.
		assert.Equal(t, p, Follow(Follow(p, Generates), GeneratedBy))
		assert.Equal(t, p, Follow(Follow(p, Overcomes), OvercomeBy))
	}
}

func TestParseStem(t *testing.T) {
	for _, in := range []string{"갑", "甲", "gap", " GAP "} {
		s, err := ParseStem(in)
		require.NoError(t, err, in)
		assert.Equal(t, Gap, s)
	}
	s, err := ParseStem("계")
	require.NoError(t, err)
	assert.Equal(t, Gye, s)
	assert.Equal(t, Water, s.Phase())
	assert.Equal(t, Yin, s.Polarity())

	_, err = ParseStem("자")
	assert.True(t, errors.Is(err, ErrInvalidStem))
}

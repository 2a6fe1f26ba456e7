package saju

import "time"

// Branch is one of the twelve earthly branches (지지).
type Branch uint8

const (
	Ja Branch = iota
	Chuk
	In
	Myo
	Jin
	Sa
	O
	Mi
	Shin
	Yu
	Sul
	Hae
	branchCount
)

var branchNames = [branchCount]struct{ korean, hanja string }{
	Ja:   {"자", "子"},
	Chuk: {"축", "丑"},
	In:   {"인", "寅"},
	Myo:  {"묘", "卯"},
	Jin:  {"진", "辰"},
	Sa:   {"사", "巳"},
	O:    {"오", "午"},
	Mi:   {"미", "未"},
	Shin: {"신", "申"},
	Yu:   {"유", "酉"},
	Sul:  {"술", "戌"},
	Hae:  {"해", "亥"},
}

// Korean returns the Hangul syllable, e.g. "자".
func (b Branch) Korean() string {
	if b >= branchCount {
		return "?"
	}
	return branchNames[b].korean
}

// Hanja returns the classical character, e.g. "子".
func (b Branch) Hanja() string {
	if b >= branchCount {
		return "?"
	}
	return branchNames[b].hanja
}

// Pillar is a sexagenary stem/branch pair.
type Pillar struct {
	Stem   Stem
	Branch Branch
}

// Korean returns the pair in Hangul, e.g. "갑자".
func (p Pillar) Korean() string { return p.Stem.Korean() + p.Branch.Korean() }

// Hanja returns the pair in classical characters, e.g. "甲子".
func (p Pillar) Hanja() string { return p.Stem.Hanja() + p.Branch.Hanja() }

// Iljin returns the day-pillar label used in almanacs, e.g. "갑자일".
func (p Pillar) Iljin() string { return p.Korean() + "일" }

// DayPillar returns the day pillar (일진) for the calendar date of t, read in
// t's own location. The cycle is anchored on the Julian Day Number: JDN
// 2415021 (1900-01-01) is 갑술.
func DayPillar(t time.Time) Pillar {
	jdn := julianDay(t.Date())
	return Pillar{
		Stem:   Stem(mod(jdn+9, int(stemCount))),
		Branch: Branch(mod(jdn+1, int(branchCount))),
	}
}

// julianDay converts a proleptic Gregorian date to its Julian Day Number.
func julianDay(year int, month time.Month, day int) int {
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

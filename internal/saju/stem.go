// Package saju implements the heavenly-stem relation engine: the five phases,
// the ten stems, and the ten relations (십신) between a subject stem and a
// reference stem. Everything here is pure and safe for concurrent use.
package saju

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStem is returned when a stem outside the ten-symbol alphabet is used.
var ErrInvalidStem = errors.New("invalid stem")

// Phase is one of the five cyclically ordered phases (오행).
type Phase uint8

const (
	Wood Phase = iota
	Fire
	Earth
	Metal
	Water
	phaseCount
)

var phaseNames = [phaseCount]struct{ english, korean, hanja string }{
	Wood:  {"wood", "목", "木"},
	Fire:  {"fire", "화", "火"},
	Earth: {"earth", "토", "土"},
	Metal: {"metal", "금", "金"},
	Water: {"water", "수", "水"},
}

// Valid reports whether p is one of the five phases.
func (p Phase) Valid() bool { return p < phaseCount }

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
	return phaseNames[p].english
}

// Korean returns the Hangul name, e.g. "목".
func (p Phase) Korean() string {
	if !p.Valid() {
		return "?"
	}
	return phaseNames[p].korean
}

// Hanja returns the classical character, e.g. "木".
func (p Phase) Hanja() string {
	if !p.Valid() {
		return "?"
	}
	return phaseNames[p].hanja
}

// Polarity is yang or yin.
type Polarity uint8

const (
	Yang Polarity = iota
	Yin
)

func (p Polarity) String() string {
	if p == Yang {
		return "yang"
	}
	return "yin"
}

// Stem is one of the ten heavenly stems (천간).
type Stem uint8

const (
	Gap Stem = iota
	Eul
	Byeong
	Jeong
	Mu
	Gi
	Gyeong
	Sin
	Im
	Gye
	stemCount
)

// StemCount is the size of the stem alphabet.
const StemCount = int(stemCount)

type stemInfo struct {
	roman    string
	korean   string
	hanja    string
	phase    Phase
	polarity Polarity
}

var stems = [stemCount]stemInfo{
	Gap:    {"gap", "갑", "甲", Wood, Yang},
	Eul:    {"eul", "을", "乙", Wood, Yin},
	Byeong: {"byeong", "병", "丙", Fire, Yang},
	Jeong:  {"jeong", "정", "丁", Fire, Yin},
	Mu:     {"mu", "무", "戊", Earth, Yang},
	Gi:     {"gi", "기", "己", Earth, Yin},
	Gyeong: {"gyeong", "경", "庚", Metal, Yang},
	Sin:    {"sin", "신", "辛", Metal, Yin},
	Im:     {"im", "임", "壬", Water, Yang},
	Gye:    {"gye", "계", "癸", Water, Yin},
}

// Stems returns all ten stems in cycle order.
func Stems() []Stem {
	out := make([]Stem, 0, stemCount)
	for s := Gap; s < stemCount; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is one of the ten stems.
func (s Stem) Valid() bool { return s < stemCount }

// Phase returns the stem's phase. Callers must check Valid first.
func (s Stem) Phase() Phase { return stems[s].phase }

// Polarity returns the stem's polarity. Callers must check Valid first.
func (s Stem) Polarity() Polarity { return stems[s].polarity }

func (s Stem) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stem(%d)", uint8(s))
	}
	return stems[s].roman
}

// Korean returns the Hangul syllable, e.g. "갑".
func (s Stem) Korean() string {
	if !s.Valid() {
		return "?"
	}
	return stems[s].korean
}

// Hanja returns the classical character, e.g. "甲".
func (s Stem) Hanja() string {
	if !s.Valid() {
		return "?"
	}
	return stems[s].hanja
}

// ParseStem accepts the Hangul, Hanja or romanized name of a stem.
// Anything else is rejected with ErrInvalidStem; no normalization beyond
// case and surrounding whitespace is attempted.
func ParseStem(v string) (Stem, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, info := range stems {
		if v == info.korean || v == info.hanja || v == info.roman {
			return Stem(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStem, v)
}

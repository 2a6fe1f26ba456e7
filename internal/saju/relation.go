package saju

import (
	"errors"
	"fmt"
)

// ErrIncompleteTable means no edge connected two phases. The phase table is
// total, so hitting this is a data-entry defect, never a legitimate outcome.
var ErrIncompleteTable = errors.New("phase table is incomplete")

// Relation is one of the ten relations (십신) of a reference stem seen from
// a subject stem.
type Relation uint8

const (
	PeerSame          Relation = iota // 비견
	PeerCross                         // 겁재
	OutputSame                        // 식신
	OutputCross                       // 상관
	ControlledWealth                  // 편재
	DirectWealth                      // 정재
	IndirectAuthority                 // 편관
	DirectAuthority                   // 정관
	IndirectSupport                   // 편인
	DirectSupport                     // 정인
	relationCount
)

// RelationCount is the number of distinct relations.
const RelationCount = int(relationCount)

var relationNames = [relationCount]struct{ label, korean, hanja string }{
	PeerSame:          {"peer-same-polarity", "비견", "比肩"},
	PeerCross:         {"peer-cross-polarity", "겁재", "劫財"},
	OutputSame:        {"output-same", "식신", "食神"},
	OutputCross:       {"output-cross", "상관", "傷官"},
	ControlledWealth:  {"controlled-wealth", "편재", "偏財"},
	DirectWealth:      {"direct-wealth", "정재", "正財"},
	IndirectAuthority: {"indirect-authority", "편관", "偏官"},
	DirectAuthority:   {"direct-authority", "정관", "正官"},
	IndirectSupport:   {"indirect-support", "편인", "偏印"},
	DirectSupport:     {"direct-support", "정인", "正印"},
}

// Relations returns all ten relations.
func Relations() []Relation {
	out := make([]Relation, 0, relationCount)
	for r := PeerSame; r < relationCount; r++ {
		out = append(out, r)
	}
	return out
}

// Valid reports whether r is one of the ten relations.
func (r Relation) Valid() bool { return r < relationCount }

func (r Relation) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Relation(%d)", uint8(r))
	}
	return relationNames[r].label
}

// Korean returns the Hangul name, e.g. "식신".
func (r Relation) Korean() string {
	if !r.Valid() {
		return "?"
	}
	return relationNames[r].korean
}

// Hanja returns the classical name, e.g. "食神".
func (r Relation) Hanja() string {
	if !r.Valid() {
		return "?"
	}
	return relationNames[r].hanja
}

// Edge is a directed phase-to-phase relation kind. Same-phase is handled
// before the table is consulted and has no column.
type Edge uint8

const (
	Generates   Edge = iota // A produces B
	Overcomes               // A controls B
	OvercomeBy              // A is controlled by B
	GeneratedBy             // A is produced by B
	edgeCount
)

func (e Edge) String() string {
	switch e {
	case Generates:
		return "generates"
	case Overcomes:
		return "overcomes"
	case OvercomeBy:
		return "overcome-by"
	case GeneratedBy:
		return "generated-by"
	default:
		return fmt.Sprintf("Edge(%d)", uint8(e))
	}
}

// phaseTable maps (phase, edge) to the phase on the other end of the edge.
type phaseTable [phaseCount][edgeCount]Phase

var defaultTable = phaseTable{
	Wood:  {Generates: Fire, Overcomes: Earth, OvercomeBy: Metal, GeneratedBy: Water},
	Fire:  {Generates: Earth, Overcomes: Metal, OvercomeBy: Water, GeneratedBy: Wood},
	Earth: {Generates: Metal, Overcomes: Water, OvercomeBy: Wood, GeneratedBy: Fire},
	Metal: {Generates: Water, Overcomes: Wood, OvercomeBy: Fire, GeneratedBy: Earth},
	Water: {Generates: Wood, Overcomes: Fire, OvercomeBy: Earth, GeneratedBy: Metal},
}

// Follow returns the phase reached from p along edge e.
func Follow(p Phase, e Edge) Phase { return defaultTable[p][e] }

// edgeRelations lists the non-peer outcomes in check order, as
// (same polarity, cross polarity) pairs.
var edgeRelations = [edgeCount][2]Relation{
	Generates:   {OutputSame, OutputCross},
	Overcomes:   {ControlledWealth, DirectWealth},
	OvercomeBy:  {IndirectAuthority, DirectAuthority},
	GeneratedBy: {IndirectSupport, DirectSupport},
}

// Relate returns the relation of reference as seen from subject. It is not
// symmetric: if subject generates reference, reference is generated by subject.
func Relate(subject, reference Stem) (Relation, error) {
	return defaultTable.relate(subject, reference)
}

// MustRelate is Relate for static inputs; it panics on error.
func MustRelate(subject, reference Stem) Relation {
	r, err := Relate(subject, reference)
	if err != nil {
		panic(err)
	}
	return r
}

func (t *phaseTable) relate(subject, reference Stem) (Relation, error) {
	if !subject.Valid() {
		return 0, fmt.Errorf("%w: subject %d", ErrInvalidStem, uint8(subject))
	}
	if !reference.Valid() {
		return 0, fmt.Errorf("%w: reference %d", ErrInvalidStem, uint8(reference))
	}

	pick := 0
	if subject.Polarity() != reference.Polarity() {
		pick = 1
	}

	sp, rp := subject.Phase(), reference.Phase()
	if sp == rp {
		return [2]Relation{PeerSame, PeerCross}[pick], nil
	}
	for e := Generates; e < edgeCount; e++ {
		if t[sp][e] == rp {
			return edgeRelations[e][pick], nil
		}
	}
	return 0, fmt.Errorf("%w: no edge from %s to %s", ErrIncompleteTable, sp, rp)
}

// CheckTable verifies that every edge column is a permutation of the phases
// and that each ordered pair of distinct phases is joined by exactly one edge.
func CheckTable() error { return defaultTable.check() }

func (t *phaseTable) check() error {
	for e := Generates; e < edgeCount; e++ {
		var seen [phaseCount]bool
		for p := Wood; p < phaseCount; p++ {
			q := t[p][e]
			if !q.Valid() {
				return fmt.Errorf("%w: %s %s points outside the phases", ErrIncompleteTable, p, e)
			}
			if q == p {
				return fmt.Errorf("%w: %s %s points to itself", ErrIncompleteTable, p, e)
			}
			if seen[q] {
				return fmt.Errorf("%w: %s is not a permutation", ErrIncompleteTable, e)
			}
			seen[q] = true
		}
	}
	for p := Wood; p < phaseCount; p++ {
		for q := Wood; q < phaseCount; q++ {
			if p == q {
				continue
			}
			n := 0
			for e := Generates; e < edgeCount; e++ {
				if t[p][e] == q {
					n++
				}
			}
			if n != 1 {
				return fmt.Errorf("%w: %s to %s joined by %d edges", ErrIncompleteTable, p, q, n)
			}
		}
	}
	return nil
}

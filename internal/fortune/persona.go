// Package fortune turns the day stem into the daily IT persona fortune: the
// fixed persona and tier tables, the prompts sent to the model, and the posts
// built from its reply.
package fortune

import (
	"github.com/hakyung/xbots/internal/saju"
)

// Persona is an IT job role bound to a day-master stem.
type Persona struct {
	Name   string
	Stem   saju.Stem
	Traits [2]string
}

var personas = []Persona{
	{Name: "[목(木) PM]", Stem: saju.Gap, Traits: [2]string{"계획", "리더십"}},
	{Name: "[화(火) 디자이너]", Stem: saju.Byeong, Traits: [2]string{"창의성", "표현"}},
	{Name: "[토(土) 인프라/DBA]", Stem: saju.Mu, Traits: [2]string{"안정성", "중재"}},
	{Name: "[금(金) 개발자]", Stem: saju.Gyeong, Traits: [2]string{"결단력", "로직"}},
	{Name: "[수(水) DevOps/SRE]", Stem: saju.Im, Traits: [2]string{"유연성", "흐름"}},
}

// PersonaCount is the number of personas ranked every day.
const PersonaCount = 5

// Personas returns the persona table in its fixed order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// LookupPersona finds a persona by its exact display name.
func LookupPersona(name string) (Persona, bool) {
	for _, p := range personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// Tier is one of the seven luck levels.
type Tier int

const (
	GreatFortune Tier = iota
	MediumFortune
	SmallFortune
	Mixed
	SmallMisfortune
	MediumMisfortune
	GreatMisfortune
)

// TierCount is the number of luck levels.
const TierCount = 7

var tierNames = [TierCount][2]string{
	{"대길", "大吉"},
	{"중길", "中吉"},
	{"소길", "小吉"},
	{"길흉상반", "吉凶相反"},
	{"소흉", "小凶"},
	{"중흉", "中凶"},
	{"대흉", "大凶"},
}

// Korean returns the Hangul tier name used in posts, e.g. "대길".
func (t Tier) Korean() string {
	if t < 0 || t >= TierCount {
		return ""
	}
	return tierNames[t][0]
}

// Hanja returns the classical tier name, e.g. "大吉".
func (t Tier) Hanja() string {
	if t < 0 || t >= TierCount {
		return ""
	}
	return tierNames[t][1]
}

func (t Tier) String() string { return t.Korean() }

// ParseTier accepts the Hangul tier name.
func ParseTier(s string) (Tier, bool) {
	for i, n := range tierNames {
		if n[0] == s {
			return Tier(i), true
		}
	}
	return 0, false
}

// Meaning is the default tier of a relation and its reading for an IT worker.
type Meaning struct {
	Tier     Tier
	Keywords string
	Examples string
}

var meanings = map[saju.Relation]Meaning{
	saju.OutputSame:        {GreatFortune, "창의력, 신기술, 아이디어 실현", "신규 기능 개발, 리팩토링"},
	saju.DirectWealth:      {MediumFortune, "안정적 성과, 꼼꼼함", "버그 수정, 정기 배포, 급여일"},
	saju.DirectAuthority:   {MediumFortune, "인정, 승진, 안정", "상사/고객의 인정, 프로세스 준수"},
	saju.DirectSupport:     {SmallFortune, "문서, 계약, 지식", "기술 블로그, 스펙 문서화, 계약 성사"},
	saju.ControlledWealth:  {SmallFortune, "유동적 성과, 큰 기회", "대규모 프로젝트, 사이드잡"},
	saju.PeerSame:          {Mixed, "협업, 동료, 주체성", "페어 프로그래밍, 스펙 리뷰, 경쟁과 협력"},
	saju.OutputCross:       {SmallMisfortune, "충돌, 구설, 기존의 틀 파괴", "말조심, 기존 시스템에 불만, 급진적 제안"},
	saju.IndirectSupport:   {MediumMisfortune, "변덕, 기획 변경, 문서 문제", "스펙 변경, 아이디어만 무성"},
	saju.PeerCross:         {GreatMisfortune, "경쟁, 손재, 갈등", "성과 뺏김, 백업 철저, 커뮤니케이션 오류"},
	saju.IndirectAuthority: {GreatMisfortune, "장애, 스트레스, 돌발 업무", "긴급 장애, 서버 다운, 야근"},
}

// MeaningOf returns the knowledge-table entry of a relation.
func MeaningOf(r saju.Relation) Meaning {
	return meanings[r]
}

// Reading is one persona's relation to the day stem.
type Reading struct {
	Persona  Persona
	Relation saju.Relation
}

// DefaultTier is the tier the knowledge table suggests before the model
// weighs the day.
func (r Reading) DefaultTier() Tier {
	return meanings[r.Relation].Tier
}

// Compute relates every persona's stem (the subject) to the day stem (the
// reference), in persona table order.
func Compute(day saju.Stem) ([]Reading, error) {
	readings := make([]Reading, 0, len(personas))
	for _, p := range personas {
		rel, err := saju.Relate(p.Stem, day)
		if err != nil {
			return nil, err
		}
		readings = append(readings, Reading{Persona: p, Relation: rel})
	}
	return readings, nil
}

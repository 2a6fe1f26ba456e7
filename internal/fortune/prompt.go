package fortune

import (
	"fmt"
	"strings"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/saju"
)

const tweetRule = `
<출력 규칙>
- 친근하고 전문적인 어조를 유지합니다.
- 각 직무의 상세 운세(등급, 해석, 아이템)는 간결해야 합니다.

<출력 포맷>
- 반드시 다음 JSON 구조로만 응답해야 합니다. 다른 텍스트는 절대 포함하지 마세요.
- 1~5위 순위 요약본을 'mainTweetSummary'에 문자열로 생성합니다.
- 1~5위 상세 정보를 'details' 배열에 *순위대로 정렬하여* 할당합니다.
{
  "mainTweetSummary": "1위: [직무명] (십신 / 등급)\n2위: [직무명] (십신 / 등급)\n3위: ...\n4위: ...\n5위: ...",
  "details": [
    {
      "persona": "[1위 직무명]",
      "shipshin": "[1위 십신]",
      "luck_level": "[결정한 1위 등급]",
      "explanation": "IT 직무에 특화된 간결한 운세 해석 (100자 내외)",
      "lucky_item": "행운의 아이템 (1개)"
    }
  ]
}
(details에는 총 5개의 객체가 1위부터 5위까지 순서대로 들어갑니다.)
`

// SystemPrompt renders the knowledge base (personas, relation meanings and
// tiers) followed by the output rules.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("당신은 봇입니다. 5가지 IT 직무 페르소나의 일일 운세를 '분석', '순위 책정', '트윗 작성'까지 모두 수행합니다.\n\n")

	b.WriteString("<핵심 임무>\n")
	b.WriteString("사용자가 '오늘의 일진(日辰)'과 '직무별 십신'을 전달합니다.\n")
	b.WriteString("당신은 '오늘의 일진'이 '각 십신'에 미치는 영향을 *주관적으로* 분석하여, 5개 직무의 운세 순위를 1위부터 5위까지 매겨야 합니다.\n")
	b.WriteString("'일진'과의 관계에 따라 점수가 같은 십신(예: 정재, 정관)이라도 순위가 달라져야 합니다. 이것이 가장 중요한 임무입니다.\n\n")

	b.WriteString("<지식베이스 1: 페르소나 및 일간(日干)>\n")
	for _, p := range personas {
		fmt.Fprintf(&b, "- %s: %s(%s)%s - (%s, %s)\n",
			p.Name, p.Stem.Korean(), p.Stem.Hanja(), p.Stem.Phase().Korean(), p.Traits[0], p.Traits[1])
	}

	b.WriteString("\n<지식베이스 2: 십신(十神) 및 IT 직무 해석 (7단계 분류)>\n")
	for tier := GreatFortune; tier < TierCount; tier++ {
		fmt.Fprintf(&b, "[%s(%s)]\n", tier.Korean(), tier.Hanja())
		for _, rel := range relationsByTier(tier) {
			m := meanings[rel]
			fmt.Fprintf(&b, "- %s(%s): %s. \"%s\"\n", rel.Korean(), rel.Hanja(), m.Keywords, m.Examples)
		}
	}

	b.WriteString("\n<지식베이스 3: 운세 등급>\n- 7가지 운세 등급:\n")
	levels := make([]string, 0, TierCount)
	for tier := GreatFortune; tier < TierCount; tier++ {
		levels = append(levels, fmt.Sprintf("%s(%s)", tier.Korean(), tier.Hanja()))
	}
	b.WriteString(strings.Join(levels, ", "))
	b.WriteString("\n- <지식베이스 2>를 참고하되, '오늘의 일진'과의 관계를 분석하여 최종 등급을 주관적으로 결정합니다.\n\n")

	b.WriteString(`<작업 순서>
1. 사용자가 제공한 '오늘의 일진'과 5개 직무의 '십신 계산 결과'를 받습니다.
2. '오늘의 일진'이 5개 십신 각각에 미치는 영향을 <지식베이스 2>를 바탕으로 *주관적으로 분석*하여 1위부터 5위까지 순위를 결정합니다.
3. 각 순위에 맞는 '운세 등급'을 할당합니다.
4. 각 순위별 'IT 직무 해석'과 '행운의 아이템'을 작성합니다.
5. <출력 포맷>에 맞춰 'mainTweetSummary'(1~5위 요약)를 생성합니다.
6. <출력 포맷>에 맞춰 'details' 배열을 생성합니다. (배열의 0번 인덱스가 1위여야 합니다.)
7. 최종 JSON 객체를 생성하여 응답합니다.
`)
	b.WriteString("\n")
	b.WriteString(tweetRule)
	return b.String()
}

// relationsByTier lists the relations whose default tier is t, in the
// order the knowledge base presents them.
func relationsByTier(t Tier) []saju.Relation {
	order := []saju.Relation{
		saju.OutputSame,
		saju.DirectWealth, saju.DirectAuthority,
		saju.DirectSupport, saju.ControlledWealth,
		saju.PeerSame,
		saju.OutputCross,
		saju.IndirectSupport,
		saju.PeerCross, saju.IndirectAuthority,
	}
	var out []saju.Relation
	for _, r := range order {
		if meanings[r].Tier == t {
			out = append(out, r)
		}
	}
	return out
}

// UserPrompt describes the day and the computed relations.
func UserPrompt(day calendar.Day, readings []Reading) string {
	stem := day.Stem()
	lines := make([]string, 0, len(readings))
	for _, r := range readings {
		lines = append(lines, fmt.Sprintf("- %s은(는) [%s]입니다.", r.Persona.Name, r.Relation.Korean()))
	}
	iljin := day.Pillar.Korean()
	return fmt.Sprintf(`오늘은 %s (%s, %s)입니다.
오늘의 일진 천간은 '%s'(%s)입니다.

십신 계산 결과:
%s

<핵심 임무>를 바탕으로, '오늘의 일진'(%s)이 각 십신에 미치는 영향을 *주관적으로 분석*하여 1위부터 5위까지 순위를 매겨주세요.
'mainTweetSummary'에는 순위 요약본을, 'details' 배열에는 1위부터 5위까지의 상세 운세를 순서대로 담아 <출력 포맷>에 맞는 JSON을 생성해 주세요.`,
		iljin, day.KoreanDate(), day.Weekday(),
		stem.Korean(), stem.Phase().Korean(),
		strings.Join(lines, "\n"),
		iljin)
}

// ReplySchema is the JSON schema of the structured reply.
func ReplySchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mainTweetSummary": str("A summary of the day's fortune ranking, formatted for a tweet."),
			"details": map[string]any{
				"type":        "array",
				"description": "The detailed fortunes for each of the 5 personas, sorted by rank.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"persona":     str("The name of the IT persona."),
						"shipshin":    str("The calculated relation for the persona."),
						"luck_level":  str("The fortune level, e.g. '대길'."),
						"explanation": str("A creative, IT-themed explanation of the fortune."),
						"lucky_item":  str("A lucky item for the day, including a modifier."),
					},
					"required":             []string{"persona", "shipshin", "luck_level", "explanation", "lucky_item"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"mainTweetSummary", "details"},
		"additionalProperties": false,
	}
}

package fortune

import (
	"fmt"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/textbudget"
)

// MainPost is the thread's opening post. It is fitted to the post budget.
func MainPost(day calendar.Day, r *Reply) string {
	text := fmt.Sprintf("%s 오늘의 IT 직무 운세 🔮\n\n%s", day.KoreanDate(), r.Summary)
	return textbudget.Fit(text, textbudget.MaxWeight, textbudget.WeightedLength)
}

// ReplyParts returns the fixed header and footer around an entry's
// explanation.
func ReplyParts(e Entry) (header, body, footer string) {
	header = fmt.Sprintf("[%d위: %s (%s)]\n", e.Rank, e.Persona, e.Tier)
	footer = fmt.Sprintf("\n\n🍀 행운의 아이템: %s", e.LuckyItem)
	return header, e.Explanation, footer
}

// ReplyPost formats one ranked entry. Only the explanation is shortened;
// the rank header and lucky item footer always survive.
func ReplyPost(e Entry) string {
	header, body, footer := ReplyParts(e)
	return textbudget.FitFramed(header, body, footer, textbudget.MaxWeight, textbudget.WeightedLength)
}

// Posts returns the main post and the ranked replies.
func Posts(day calendar.Day, r *Reply) (string, []string) {
	entries := r.Ranked()
	replies := make([]string, len(entries))
	for i, e := range entries {
		replies[i] = ReplyPost(e)
	}
	return MainPost(day, r), replies
}

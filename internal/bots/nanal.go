package bots

import (
	"context"
	"fmt"
	"strings"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/events"
	"github.com/hakyung/xbots/internal/llm"
	"github.com/hakyung/xbots/internal/metrics"
)

// Observer returns the observances listed for a month and day, as markdown.
type Observer interface {
	Observances(ctx context.Context, month, day int) (string, error)
}

// EventSource returns the active custom event catalog.
type EventSource interface {
	Catalog() events.Catalog
}

// Nanal posts one fact-of-the-day post built by the model from the custom
// events and the Wikipedia observances of the date.
type Nanal struct {
	LLM     llm.Completer
	Model   string
	Wiki    Observer
	Events  EventSource
	Metrics *metrics.Metrics
}

func (n *Nanal) Name() string { return config.BotNanal }

const nanalSystemPrompt = `
You are "나날", an information bot that tweets facts about today's date.

<Your Goal>
Create a single, focused, and informative tweet in Korean, under 280 characters. Your tweet should have ONE main theme and, if relevant, one or two related fun facts. The current year will be provided. If the founding year of an event is clearly stated in the provided text, use it to calculate anniversaries (e.g., "N주년"). You will be given a list of observances from Wikipedia. Use this data to tell a compelling story about the day.

<How to Choose the Theme>
1.  **Analyze Observances & Categorize:** First, review the entire list of observances from Wikipedia. Categorize them into two groups:
    *   **Tier 1 (Must-Mention):** A list of all highly famous and culturally significant events for the day (e.g., for Nov 11, this would include Pepero Day, Singles' Day/Gwanggunjeol, and Navy Day).
    *   **Tier 2 (Interesting):** All other observances.
2.  **Prioritize the Main Theme:**
    *   **Priority 1 (Absolute): Special Event:** If a special event is provided (like the bot's birthday), it MUST be the main theme.
    *   **Priority 2: Most Significant Tier 1 Event:** If there's no special event, choose the MOST significant or well-known event from your "Tier 1" list to be the main theme.
    *   **Priority 3: Most Interesting Topic:** If the "Tier 1" list is empty, pick the most interesting topic from the "Tier 2" list to be the main theme.
    *   **Priority 4: Creative Fallback:** If all lists are empty, invent a fun, special day. In this case, humorously indicate that this day is a fictional creation (e.g., "나날 봇이 특별히 제정한...").

<How to Write the Tweet>
- **Focus on the main theme.**
- **Mandatory Inclusion Rule:** Your tweet MUST mention ALL events from the "Tier 1 (Must-Mention)" list you created. One will be the main theme, and the others should be included as key facts.
- **Anniversary Rule:** Only state the anniversary of an event (e.g., "50주년") if the founding year is explicitly mentioned in the provided Wikipedia data. Do not guess or infer the year.
- **Add Other Facts (Optional):** If space permits after including all Tier 1 events, you can add an interesting fact from the "Tier 2" list.
- State facts clearly and concisely.
- The tone must be neutral, objective, and informative.
- **CRITICAL: Avoid suggestive or conversational endings like '~해요', '~보세요', '~까요?'. Instead, use declarative endings like '~입니다', '~날입니다'.**
- Do not end the tweet with an ellipsis ("..."). Finish the sentence completely.
- The tweet MUST NOT contain any hashtags.
- Start the tweet with the format: "[Month]월 [Day]일, " (e.g., "11월 11일, ")
`

// NanalSystemPrompt returns the instructions given to the model.
func NanalSystemPrompt() string { return nanalSystemPrompt }

// NanalUserPrompt describes the date, its special events and the
// observances markdown.
func NanalUserPrompt(day calendar.Day, special []string, observances string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Today is %d년 %s (%s).\n", day.Year(), day.MonthDay(), day.Weekday())
	if len(special) > 0 {
		b.WriteString("\n**Today's Special Events:**\n- ")
		b.WriteString(strings.Join(special, "\n- "))
		b.WriteString("\n")
	}
	b.WriteString("\nHere is the list of observances from Wikipedia:\n\n```\n")
	b.WriteString(observances)
	b.WriteString("\n```\n\nFollow the instructions to create a tweet.")
	return b.String()
}

func (n *Nanal) Run(ctx context.Context, rc RunContext) (*Output, error) {
	if n.LLM == nil {
		return nil, fmt.Errorf("nanal: %w", llm.ErrDisabled)
	}

	var special []string
	if n.Events != nil {
		for _, ev := range n.Events.Catalog().On(rc.Day) {
			special = append(special, ev.Describe(rc.Day.Year()))
		}
	}
	if len(special) > 0 {
		rc.Log.Info("special events today", "events", strings.Join(special, ", "))
	}

	// Observances only enrich the prompt; a lookup failure still posts.
	var observances string
	if n.Wiki != nil {
		obs, err := n.Wiki.Observances(ctx, rc.Day.Month(), rc.Day.DayOfMonth())
		if err != nil {
			rc.Log.Error("wikipedia fetch failed", "error", err)
		} else {
			observances = obs
		}
	}

	text, err := n.LLM.Complete(ctx, llm.Request{
		System: nanalSystemPrompt,
		Prompt: NanalUserPrompt(rc.Day, special, observances),
		Model:  n.Model,
	})
	n.Metrics.LLMCall(n.Name(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("generate post: %w", llm.ErrEmpty)
	}

	id, err := rc.Publisher.Post(ctx, text)
	if err != nil {
		return &Output{Tweet: text}, fmt.Errorf("post: %w", err)
	}
	return &Output{Tweet: text, MainID: id}, nil
}

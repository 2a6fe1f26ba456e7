package fortune

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hakyung/xbots/internal/llm"
)

// ErrInvalidReply is returned when the model's reply does not have the
// required shape.
var ErrInvalidReply = errors.New("invalid fortune reply")

// Detail is one ranked entry as the model writes it.
type Detail struct {
	Persona     string `json:"persona"`
	Relation    string `json:"shipshin"`
	Tier        string `json:"luck_level"`
	Explanation string `json:"explanation"`
	LuckyItem   string `json:"lucky_item"`
}

// Reply is the model's structured answer. Details are ordered best first.
type Reply struct {
	Summary string   `json:"mainTweetSummary"`
	Details []Detail `json:"details"`
}

// Entry is a detail decorated with its 1-based rank.
type Entry struct {
	Rank int `json:"rank"`
	Detail
}

// ParseReply extracts the JSON object from raw model output and checks it.
func ParseReply(raw string) (*Reply, error) {
	obj, err := llm.ExtractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	var r Reply
	if err := json.Unmarshal([]byte(obj), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Reply) validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("%w: missing mainTweetSummary", ErrInvalidReply)
	}
	if len(r.Details) != PersonaCount {
		return fmt.Errorf("%w: want %d details, got %d", ErrInvalidReply, PersonaCount, len(r.Details))
	}
	for i, d := range r.Details {
		switch {
		case strings.TrimSpace(d.Persona) == "":
			return fmt.Errorf("%w: detail %d: missing persona", ErrInvalidReply, i+1)
		case strings.TrimSpace(d.Tier) == "":
			return fmt.Errorf("%w: detail %d: missing luck_level", ErrInvalidReply, i+1)
		case strings.TrimSpace(d.Explanation) == "":
			return fmt.Errorf("%w: detail %d: missing explanation", ErrInvalidReply, i+1)
		case strings.TrimSpace(d.LuckyItem) == "":
			return fmt.Errorf("%w: detail %d: missing lucky_item", ErrInvalidReply, i+1)
		}
	}
	return nil
}

// Warnings lists soft problems: personas the table does not know, personas
// named twice, tiers outside the vocabulary, and relations that disagree
// with the computed readings. None of them stops the post.
func (r *Reply) Warnings(readings []Reading) []string {
	computed := make(map[string]string, len(readings))
	for _, rd := range readings {
		computed[rd.Persona.Name] = rd.Relation.Korean()
	}
	var warns []string
	seen := make(map[string]bool, len(r.Details))
	for i, d := range r.Details {
		rank := i + 1
		if _, ok := LookupPersona(d.Persona); !ok {
			warns = append(warns, fmt.Sprintf("rank %d: unknown persona %q", rank, d.Persona))
		} else if seen[d.Persona] {
			warns = append(warns, fmt.Sprintf("rank %d: persona %q ranked twice", rank, d.Persona))
		}
		seen[d.Persona] = true
		if _, ok := ParseTier(d.Tier); !ok {
			warns = append(warns, fmt.Sprintf("rank %d: unknown luck level %q", rank, d.Tier))
		}
		if want, ok := computed[d.Persona]; ok && d.Relation != "" && !strings.Contains(d.Relation, want) {
			warns = append(warns, fmt.Sprintf("rank %d: relation %q, computed %q", rank, d.Relation, want))
		}
	}
	return warns
}

// Ranked decorates the details with ranks 1..n in reply order.
func (r *Reply) Ranked() []Entry {
	out := make([]Entry, len(r.Details))
	for i, d := range r.Details {
		out[i] = Entry{Rank: i + 1, Detail: d}
	}
	return out
}

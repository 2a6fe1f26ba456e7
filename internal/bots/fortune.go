package bots

import (
	"context"
	"fmt"

	"github.com/hakyung/xbots/internal/config"
	"github.com/hakyung/xbots/internal/fortune"
	"github.com/hakyung/xbots/internal/llm"
	"github.com/hakyung/xbots/internal/metrics"
)

const fortuneTemperature = 0.75

// Fortune posts the daily IT persona fortune as a thread: a summary post
// followed by one reply per ranked persona.
type Fortune struct {
	LLM     llm.Completer
	Model   string
	Metrics *metrics.Metrics
}

func (f *Fortune) Name() string { return config.BotFortune }

func (f *Fortune) Run(ctx context.Context, rc RunContext) (*Output, error) {
	if f.LLM == nil {
		return nil, fmt.Errorf("fortune: %w", llm.ErrDisabled)
	}
	readings, err := fortune.Compute(rc.Day.Stem())
	if err != nil {
		return nil, fmt.Errorf("compute relations: %w", err)
	}
	for _, r := range readings {
		rc.Log.Debug("relation", "persona", r.Persona.Name, "relation", r.Relation.Korean())
	}

	raw, err := f.LLM.Complete(ctx, llm.Request{
		System:      fortune.SystemPrompt(),
		Prompt:      fortune.UserPrompt(rc.Day, readings),
		Model:       f.Model,
		Temperature: fortuneTemperature,
		Schema: &llm.Schema{
			Name:        "daily_fortune_response",
			Description: "The structured JSON response for the daily IT persona fortune.",
			Definition:  fortune.ReplySchema(),
			Strict:      true,
		},
	})
	f.Metrics.LLMCall(f.Name(), err == nil)
	if err != nil {
		return nil, fmt.Errorf("generate fortune: %w", err)
	}

	reply, err := fortune.ParseReply(raw)
	if err != nil {
		return nil, err
	}
	for _, w := range reply.Warnings(readings) {
		rc.Log.Warn("fortune reply", "warning", w)
	}

	main, replies := fortune.Posts(rc.Day, reply)
	th, err := rc.Publisher.Thread(ctx, main, replies)
	out := &Output{Tweet: main, Replies: replies}
	if th != nil {
		out.MainID = th.MainID
		out.ReplyIDs = th.ReplyIDs
		out.FailedReplies = th.Failed
	}
	if err != nil {
		return out, fmt.Errorf("post thread: %w", err)
	}
	return out, nil
}

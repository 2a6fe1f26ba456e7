package twitter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hakyung/xbots/internal/textbudget"
)

// DryRun logs posts instead of publishing them. It applies the same
// fitting as Client so the log shows exactly what would go out.
type DryRun struct {
	Log *slog.Logger

	mu   sync.Mutex
	seq  int
	sent []string
}

// Post logs text and returns a synthetic id.
func (d *DryRun) Post(_ context.Context, text string) (string, error) {
	return d.record("main", text), nil
}

// Thread logs the main post and every reply.
func (d *DryRun) Thread(_ context.Context, main string, replies []string) (*Thread, error) {
	th := &Thread{MainID: d.record("main", main)}
	for _, r := range replies {
		th.ReplyIDs = append(th.ReplyIDs, d.record("reply", r))
	}
	return th, nil
}

// Sent returns the fitted texts in posting order.
func (d *DryRun) Sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.sent...)
}

func (d *DryRun) record(kind, text string) string {
	fitted := textbudget.Fit(text, textbudget.MaxWeight, textbudget.WeightedLength)

	d.mu.Lock()
	d.seq++
	id := fmt.Sprintf("dry-run-%d", d.seq)
	d.sent = append(d.sent, fitted)
	d.mu.Unlock()

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("dry run post",
		"kind", kind,
		"id", id,
		"weight", textbudget.WeightedLength(fitted),
		"truncated", fitted != text,
		"text", fitted,
	)
	return id
}

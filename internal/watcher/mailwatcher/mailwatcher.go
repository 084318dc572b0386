// Package mailwatcher implements the mail watcher variant (§4.D): query
// the provider, materialize each new message as a Needs_Action artifact,
// then tag the remote message processed so the same query won't return
// it again.
package mailwatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/digitalfte/fte/internal/priority"
	"github.com/digitalfte/fte/internal/vault"
)

// Message is one mail item as seen by the provider, already decoded to
// plain text (the base64url body decoding is the provider's concern —
// it is the out-of-scope collaborator, §1).
type Message struct {
	ID      string
	From    string
	Subject string
	Date    string
	Body    string
}

// Provider is the black-box mail backend: search plus the "processed"
// labeling side channel that makes cross-process polling idempotent.
type Provider interface {
	Search(ctx context.Context, query string) ([]Message, error)
	MarkProcessed(ctx context.Context, id string) error
}

// Watcher polls Provider and writes Needs_Action artifacts.
type Watcher struct {
	Provider   Provider
	Store      *vault.Store
	Classifier *priority.Classifier
	Query      string

	seen map[string]bool
}

// New returns a mail watcher. classifier may be nil, in which case
// every message is classified Normal.
func New(provider Provider, store *vault.Store, classifier *priority.Classifier, query string) *Watcher {
	if classifier == nil {
		classifier = priority.New(nil)
	}
	return &Watcher{
		Provider:   provider,
		Store:      store,
		Classifier: classifier,
		Query:      query,
		seen:       make(map[string]bool),
	}
}

// RunOnce queries the provider once, materializing every message not
// already seen this process. A failure materializing one message is
// logged-by-return (the count simply doesn't include it) and never
// aborts the batch; a tagging failure is ignored and the message still
// counts.
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	messages, err := w.Provider.Search(ctx, w.Query)
	if err != nil {
		return 0, fmt.Errorf("mailwatcher: search: %w", err)
	}

	count := 0
	for _, m := range messages {
		if w.seen[m.ID] {
			continue
		}
		w.seen[m.ID] = true

		if err := w.materialize(m); err != nil {
			continue
		}
		// Tagging failure doesn't undo materialization; the artifact
		// already exists, we just risk re-seeing this message on a
		// fresh process. The in-memory seen set covers this process.
		_ = w.Provider.MarkProcessed(ctx, m.ID)
		count++
	}
	return count, nil
}

func (w *Watcher) materialize(m Message) error {
	h := vault.NewHeader()
	h.Set("type", "email")
	h.Set("from", m.From)
	h.Set("subject", m.Subject)
	h.Set("date", m.Date)
	h.Set("id", m.ID)

	level := w.Classifier.Classify(m.From, m.Subject+"\n"+m.Body)
	h.Set("priority", string(level))

	name := fmt.Sprintf("email-%s.md", sanitizeID(m.ID))
	_, err := w.Store.Write(vault.NeedsAction, name, h, m.Body)
	return err
}

func sanitizeID(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return replacer.Replace(id)
}

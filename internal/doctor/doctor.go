// Package doctor gathers failure context — the last cycle's log tail, a
// failing artifact's header and body, and the current quarantine state —
// and asks the assistant for a one-shot diagnosis, the way the teacher's
// doctor command gathers phase config + log + feedback before asking
// claude to explain a failed run.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/digitalfte/fte/internal/assistant"
	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/ux"
	"github.com/digitalfte/fte/internal/vault"
)

const maxLogEntries = 50

const diagPrompt = `You are diagnosing a failing fte pipeline. Analyze the context below and provide a concise diagnosis.

## Recent Activity (last %d log entries)
%s

## Quarantined Artifacts
%s
%s
Instructions:
1. Identify what is going wrong from the activity log and quarantine state.
2. Classify this as a CONFIGURATION problem (credentials, zone, thresholds) or a DESTINATION problem (the remote side effect is failing).
3. Suggest specific fixes.
4. Recommend whether affected artifacts should be requeued from Quarantine or left for manual review.

Be direct and concise. Focus on actionable advice.`

// Run gathers current failure context and asks the assistant to
// diagnose it, printing the diagnosis to the terminal.
func Run(ctx context.Context, a assistant.Assistant, store *vault.Store, logs *logsink.Sink, model string) error {
	recent, err := logs.Recent(maxLogEntries)
	if err != nil {
		return fmt.Errorf("doctor: reading recent log entries: %w", err)
	}
	quarantined, err := store.List(vault.Quarantine)
	if err != nil {
		return fmt.Errorf("doctor: listing quarantine: %w", err)
	}

	activity := gatherActivity(recent)
	quarantine := gatherQuarantine(store, quarantined)
	failingSection := gatherFailingArtifact(store, quarantined)

	prompt := fmt.Sprintf(diagPrompt, maxLogEntries, activity, quarantine, failingSection)

	fmt.Printf("\n%s%s══ Doctor: diagnosing current state ══%s\n\n", ux.Bold, ux.Cyan, ux.Reset)

	diagnosis, err := a.Invoke(ctx, prompt, model, 120*time.Second)
	if err != nil {
		return fmt.Errorf("doctor: assistant invocation: %w", err)
	}
	fmt.Println(diagnosis)
	fmt.Println()
	return nil
}

func gatherActivity(entries []logsink.Entry) string {
	if len(entries) == 0 {
		return "(no recent activity)"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s %s %s — %s\n", e.Timestamp.Format(time.RFC3339), e.Actor, e.Action, e.Source, e.Result)
	}
	return b.String()
}

func gatherQuarantine(store *vault.Store, handles []vault.Handle) string {
	if len(handles) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, h := range handles {
		header, _, err := store.Read(h)
		if err != nil {
			continue
		}
		reason, _ := header.Get("quarantine_error")
		quarantinedAt, _ := header.Get("quarantine_time")
		fmt.Fprintf(&b, "- %s (since %s): %s\n", h.Name, quarantinedAt, reason)
	}
	return b.String()
}

func gatherFailingArtifact(store *vault.Store, handles []vault.Handle) string {
	if len(handles) == 0 {
		return ""
	}
	h := handles[0]
	_, body, err := store.Read(h)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n## Sample Quarantined Artifact (%s)\n%s\n", h.Name, body)
}

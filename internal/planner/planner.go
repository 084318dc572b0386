// Package planner converts a Needs_Action artifact into a plan (§4.F).
// It owns prompt assembly and response parsing; it never touches the
// content store directly — callers (the orchestrator) read the source
// artifact and write the resulting plan.
package planner

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/digitalfte/fte/internal/assistant"
	"github.com/digitalfte/fte/internal/vault"
)

// DefaultTimeout is the assistant invocation bound for a planning pass (§5).
const DefaultTimeout = 120 * time.Second

const replyBeginMarker = "---BEGIN REPLY---"
const replyEndMarker = "---END REPLY---"

const manualReviewAnalysis = "The assistant was unavailable, so this item requires manual review."

var confidenceRe = regexp.MustCompile(`(?i)confidence\s*:?\s*\**\s*(\d*\.?\d+)`)

// Planner assembles prompts and parses assistant responses into plans.
type Planner struct {
	Assistant assistant.Assistant
	Model     string
	Timeout   time.Duration
}

// New returns a Planner using the given assistant and model.
func New(a assistant.Assistant, model string) *Planner {
	return &Planner{Assistant: a, Model: model, Timeout: DefaultTimeout}
}

// Plan is the parsed result of one planning pass, independent of the
// artifact header bookkeeping the orchestrator adds on top.
type Plan struct {
	Body       string
	Confidence float64
	HasReply   bool
	ReplyBody  string
	ManualOnly bool
}

// BuildPrompt assembles the planning prompt from the Handbook, the
// (possibly empty) Memory text, and the source artifact body.
func BuildPrompt(handbook, memory, sourceBody string) string {
	var b strings.Builder
	b.WriteString("You are an assistant that triages incoming items for a small organization.\n\n")
	b.WriteString("## Company Handbook\n")
	b.WriteString(handbook)
	b.WriteString("\n\n")
	if strings.TrimSpace(memory) != "" {
		b.WriteString("## Lessons From Past Rejections\n")
		b.WriteString(memory)
		b.WriteString("\n\n")
	}
	b.WriteString("## Item To Triage\n")
	b.WriteString(sourceBody)
	b.WriteString("\n\n")
	b.WriteString("Respond with exactly these labeled sections:\n")
	b.WriteString("Analysis: <your analysis>\n")
	b.WriteString("Recommended Actions: <what should happen next>\n")
	b.WriteString("Requires Approval: <yes/no and why>\n")
	b.WriteString("If a reply should be sent, include it between the literal lines ---BEGIN REPLY--- and ---END REPLY---.\n")
	b.WriteString("Confidence: <a single number between 0 and 1>\n")
	return b.String()
}

// Run executes one planning pass and always returns a plan: a failed
// assistant call collapses to the canonical manual-review plan (§4.F)
// with confidence 0.
func (p *Planner) Run(ctx context.Context, handbook, memory, sourceBody string) *Plan {
	prompt := BuildPrompt(handbook, memory, sourceBody)
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	output, err := p.Assistant.Invoke(ctx, prompt, p.Model, timeout)
	if err != nil {
		return &Plan{
			Body:       manualReviewAnalysis,
			Confidence: 0,
			ManualOnly: true,
		}
	}

	return parseResponse(output)
}

func parseResponse(output string) *Plan {
	plan := &Plan{Body: output}

	if m := confidenceRe.FindStringSubmatch(output); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			plan.Confidence = v
		}
	}

	if body, ok := ExtractReplyBody(output); ok {
		plan.HasReply = true
		plan.ReplyBody = body
	}

	return plan
}

// ExtractReplyBody pulls the text framed by the literal
// ---BEGIN REPLY---/---END REPLY--- markers out of text, stripping
// surrounding whitespace (§6). Used both when a plan is first drafted
// and again at execution time, since the plan artifact stores the raw
// assistant output verbatim.
func ExtractReplyBody(text string) (string, bool) {
	start := strings.Index(text, replyBeginMarker)
	if start == -1 {
		return "", false
	}
	rest := text[start+len(replyBeginMarker):]
	end := strings.Index(rest, replyEndMarker)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// BuildHeader constructs the Pending_Approval artifact header for a
// planning result, given the source artifact's handle name and header.
func BuildHeader(plan *Plan, sourceName string, sourceHeader *vault.Header, now time.Time) *vault.Header {
	h := vault.NewHeader()
	h.Set("source", sourceName)
	h.Set("created", now.UTC().Format(time.RFC3339))
	h.Set("status", "pending_approval")
	h.SetConfidence(plan.Confidence)

	if plan.HasReply {
		h.Set("action", "reply")
		if id, ok := sourceHeader.Get("id"); ok {
			h.Set("gmail_id", id)
		}
		if from, ok := sourceHeader.Get("from"); ok {
			h.Set("to", from)
		}
		subject := ""
		if s, ok := sourceHeader.Get("subject"); ok {
			subject = s
		}
		h.Set("subject", replySubject(subject))
	}

	return h
}

// replySubject prefixes subject with "Re:" unless it already carries one.
func replySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		return trimmed
	}
	return fmt.Sprintf("Re: %s", trimmed)
}

// Package orchestrator implements the state-transition engine (§4.G):
// action → plan → (auto-approve | pending | rejected) → (executed |
// done), including the confidence-based auto-approval policy and the
// rejection → memory feedback loop.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/planner"
	"github.com/digitalfte/fte/internal/priority"
	"github.com/digitalfte/fte/internal/ratelimit"
	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/sink"
	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/vcsync"
	"github.com/digitalfte/fte/internal/zone"
)

// Config holds the tunables §6 exposes as configuration keys.
type Config struct {
	AutoApproveThreshold float64 // 1.0 disables auto-approval
	DailySendLimit       int
}

// Orchestrator wires the content store to the planner, sinks, log sink,
// rate counters, and zone policy.
type Orchestrator struct {
	Store   *vault.Store
	Planner *planner.Planner
	Sinks   *sink.Registry
	Logs    *logsink.Sink
	Rate    *ratelimit.Counter
	Zone    *zone.Policy
	Config  Config
}

// New returns an Orchestrator wired to the given collaborators.
func New(store *vault.Store, p *planner.Planner, sinks *sink.Registry, logs *logsink.Sink, rate *ratelimit.Counter, zonePolicy *zone.Policy, cfg Config) *Orchestrator {
	return &Orchestrator{Store: store, Planner: p, Sinks: sinks, Logs: logs, Rate: rate, Zone: zonePolicy, Config: cfg}
}

// GetPending returns Needs_Action artifacts in priority order: high,
// then normal, then low, ties broken by filename ascending (§4.G.1).
func (o *Orchestrator) GetPending() ([]vault.Handle, error) {
	handles, err := o.Store.List(vault.NeedsAction)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: listing pending: %w", err)
	}

	type ranked struct {
		handle vault.Handle
		rank   int
	}
	items := make([]ranked, 0, len(handles))
	for _, h := range handles {
		header, _, err := o.Store.Read(h)
		level := priority.Normal
		if err == nil {
			if v, ok := header.Get("priority"); ok {
				level = priority.Normalize(v)
			}
		}
		items = append(items, ranked{handle: h, rank: priority.Rank(level)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rank != items[j].rank {
			return items[i].rank > items[j].rank
		}
		return items[i].handle.Name < items[j].handle.Name
	})

	out := make([]vault.Handle, len(items))
	for i, it := range items {
		out[i] = it.handle
	}
	return out, nil
}

// GetApproved returns Approved artifacts, filename-sorted (§4.G.4).
func (o *Orchestrator) GetApproved() ([]vault.Handle, error) {
	return o.Store.List(vault.Approved)
}

// GetRejected returns Rejected artifacts, filename-sorted (§4.G.4).
func (o *Orchestrator) GetRejected() ([]vault.Handle, error) {
	return o.Store.List(vault.Rejected)
}

// ProcessPending converts one Needs_Action artifact into a plan
// (§4.G.1): draft, write to Pending_Approval, delete the original, then
// apply the auto-approve policy if this zone permits it.
func (o *Orchestrator) ProcessPending(ctx context.Context, h vault.Handle) error {
	sourceHeader, sourceBody, err := o.Store.Read(h)
	if err != nil {
		return fmt.Errorf("orchestrator: reading %s: %w", h.Name, err)
	}

	handbook, err := o.Store.ReadHandbook()
	if err != nil {
		return fmt.Errorf("orchestrator: reading handbook: %w", err)
	}
	memory, err := o.Store.ReadMemory()
	if err != nil {
		return fmt.Errorf("orchestrator: reading memory: %w", err)
	}

	plan := o.Planner.Run(ctx, handbook, memory, sourceBody)
	planHeader := planner.BuildHeader(plan, h.Name, sourceHeader, time.Now())

	planHandle, err := o.Store.Write(vault.PendingApproval, h.Name, planHeader, plan.Body)
	if err != nil {
		return fmt.Errorf("orchestrator: writing plan for %s: %w", h.Name, err)
	}
	if err := o.Store.Delete(h); err != nil {
		return fmt.Errorf("orchestrator: deleting source %s: %w", h.Name, err)
	}
	o.log("plan_created", h.Name, "ok")

	if !o.Zone.Allows(zone.WriteDashboard) {
		// This zone cannot write the dashboard index directly (§3
		// invariant 4); announce the new plan via Updates/ instead, named
		// with a UUID so concurrent drafting agents never collide on a
		// filename the way a timestamp-only name could.
		update := vcsync.Update{
			Kind:    "plan_drafted",
			Source:  h.Name,
			Detail:  planHandle.Name,
			Written: time.Now().UTC().Format(time.RFC3339),
		}
		if err := vcsync.WriteUpdate(o.Store, "update-"+uuid.NewString()+".json", update); err != nil {
			return fmt.Errorf("orchestrator: announcing plan for %s: %w", h.Name, err)
		}
	}

	if !o.Zone.Allows(zone.AutoApprove) {
		return nil
	}
	return o.tryAutoApprove(ctx, planHandle, planHeader, plan.Confidence)
}

// tryAutoApprove implements §4.G.1 step 5: move to Approved and execute
// immediately when confidence clears the threshold, the plan carries an
// executable action, and quota permits. A transient execution failure
// sends the plan back to Pending_Approval for a human to retry.
func (o *Orchestrator) tryAutoApprove(ctx context.Context, planHandle vault.Handle, planHeader *vault.Header, confidence float64) error {
	action, _ := planHeader.Get("action")
	if action == "" || confidence < o.Config.AutoApproveThreshold {
		return nil
	}
	if _, ok := o.Sinks.Lookup(action); !ok {
		return nil
	}
	if allow, err := o.Rate.Allow(action, o.Config.DailySendLimit); err != nil || !allow {
		return nil
	}

	approvedHandle, err := o.Store.Move(planHandle, vault.Approved)
	if err != nil {
		return fmt.Errorf("orchestrator: auto-approving %s: %w", planHandle.Name, err)
	}

	moved, execErr := o.ExecuteApproved(ctx, approvedHandle)
	if execErr == nil && moved.Folder == vault.Done {
		o.log("auto_approved", approvedHandle.Name, fmt.Sprintf("confidence=%.2f", confidence))
		return nil
	}
	// ExecuteApproved reports a transient send failure by leaving the
	// artifact in Approved with a nil error.
	if execErr == nil || retry.IsTransient(execErr) {
		if _, moveErr := o.Store.Move(approvedHandle, vault.PendingApproval); moveErr != nil {
			return fmt.Errorf("orchestrator: reverting failed auto-approve for %s: %w", approvedHandle.Name, moveErr)
		}
		reason := "execution did not complete"
		if execErr != nil {
			reason = execErr.Error()
		}
		o.log("auto_approve_reverted", approvedHandle.Name, reason)
		return nil
	}
	return execErr
}

// ExecuteApproved dispatches an Approved artifact by its action field
// (§4.G.2). Returns the artifact's resulting handle (unchanged if it
// stayed put, e.g. on a transient failure or an exhausted quota).
func (o *Orchestrator) ExecuteApproved(ctx context.Context, h vault.Handle) (vault.Handle, error) {
	if !o.Zone.Allows(zone.ExecuteSideEffect) {
		return h, nil
	}

	header, body, err := o.Store.Read(h)
	if err != nil {
		return h, fmt.Errorf("orchestrator: reading %s: %w", h.Name, err)
	}

	action, _ := header.Get("action")
	if action == "" {
		moved, err := o.Store.Move(h, vault.Done)
		if err != nil {
			return h, err
		}
		o.log("executed", h.Name, "ok")
		return moved, nil
	}

	s, ok := o.Sinks.Lookup(action)
	if !ok {
		moved, err := o.Store.Move(h, vault.Done)
		if err != nil {
			return h, err
		}
		o.log("executed", h.Name, "unrecognized action, no-op")
		return moved, nil
	}

	sendBody := body
	if action == "reply" {
		replyBody, hasReply := planner.ExtractReplyBody(body)
		if !hasReply {
			o.log("reply_failed", h.Name, "missing reply block")
			return o.Store.Move(h, vault.Done)
		}
		sendBody = replyBody
	}

	allow, err := o.Rate.Allow(action, o.Config.DailySendLimit)
	if err != nil {
		return h, fmt.Errorf("orchestrator: checking quota for %s: %w", action, err)
	}
	if !allow {
		o.log(action+"_quota_exhausted", h.Name, "deferred to next cycle")
		return h, nil
	}

	sendErr := s.Execute(ctx, header, sendBody)
	if sendErr == nil {
		if _, err := o.Rate.Increment(action); err != nil {
			return h, fmt.Errorf("orchestrator: incrementing quota for %s: %w", action, err)
		}
		o.log(successLabel(action), h.Name, "ok")
		return o.Store.Move(h, vault.Done)
	}

	if retry.IsPermanent(sendErr) {
		o.log(action+"_failed", h.Name, sendErr.Error())
		return o.Store.Move(h, vault.Done)
	}

	o.log("send_failed", h.Name, sendErr.Error())
	return h, nil
}

func successLabel(action string) string {
	switch action {
	case "reply":
		return "email_sent"
	default:
		return action + "_sent"
	}
}

// ReviewRejected asks the assistant for one sentence of learning from a
// rejected plan, appends it to Memory, and moves the artifact to Done
// (§4.G.3). An empty assistant response still completes the transition.
func (o *Orchestrator) ReviewRejected(ctx context.Context, h vault.Handle) error {
	_, body, err := o.Store.Read(h)
	if err != nil {
		return fmt.Errorf("orchestrator: reading %s: %w", h.Name, err)
	}

	prompt := fmt.Sprintf(
		"The following plan was rejected by a human reviewer:\n\n%s\n\nIn exactly one sentence, state the lesson future planning should learn from this rejection.",
		body,
	)
	lesson, err := o.Planner.Assistant.Invoke(ctx, prompt, o.Planner.Model, planner.DefaultTimeout)
	if err == nil {
		if trimmed := strings.TrimSpace(lesson); trimmed != "" {
			line := fmt.Sprintf("- %s: %s", time.Now().UTC().Format(time.RFC3339), trimmed)
			if err := o.Store.AppendMemory(line); err != nil {
				return fmt.Errorf("orchestrator: appending memory: %w", err)
			}
		}
	}

	if _, err := o.Store.Move(h, vault.Done); err != nil {
		return fmt.Errorf("orchestrator: moving %s to done: %w", h.Name, err)
	}
	o.log("rejection_reviewed", h.Name, "ok")
	return nil
}

func (o *Orchestrator) log(action, source, result string) {
	if o.Logs == nil {
		return
	}
	_ = o.Logs.Append(logsink.Entry{
		Timestamp: time.Now().UTC(),
		Actor:     "orchestrator",
		Action:    action,
		Source:    source,
		Result:    result,
	})
}

// Package summarizer builds the period report (§4.N): per-action log
// counts, the set of artifacts that reached Done within the window, and
// a bottleneck list of artifacts stuck in Needs_Action or
// Pending_Approval for more than a day. Reports are saved as markdown
// under Briefings/.
package summarizer

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/vault"
)

// BottleneckAge is the minimum time an artifact must sit in a
// human-facing folder before it's flagged as stuck.
const BottleneckAge = 24 * time.Hour

// Bottleneck is one artifact that has aged past BottleneckAge without
// being acted on.
type Bottleneck struct {
	Folder string
	Name   string
	AgeHrs float64
}

// Report is the summarizer's output for one period.
type Report struct {
	Start       time.Time
	End         time.Time
	ActionCount map[string]int
	Done        []string
	Bottlenecks []Bottleneck
}

// Summarizer builds period reports from the content store and log sink.
type Summarizer struct {
	Store *vault.Store
	Logs  *logsink.Sink
}

// New returns a Summarizer over store and logs.
func New(store *vault.Store, logs *logsink.Sink) *Summarizer {
	return &Summarizer{Store: store, Logs: logs}
}

// Build collects a Report for [since, now], both ends inclusive.
func (s *Summarizer) Build(since, now time.Time) (*Report, error) {
	entries, err := s.Logs.Entries(since)
	if err != nil {
		return nil, fmt.Errorf("summarizer: reading log entries: %w", err)
	}

	report := &Report{Start: since, End: now, ActionCount: make(map[string]int)}
	for _, e := range entries {
		if e.Timestamp.After(now) {
			continue
		}
		report.ActionCount[e.Action]++
	}

	done, err := s.doneWithinPeriod(since, now)
	if err != nil {
		return nil, err
	}
	report.Done = done

	bottlenecks, err := s.bottlenecks(now)
	if err != nil {
		return nil, err
	}
	report.Bottlenecks = bottlenecks

	return report, nil
}

func (s *Summarizer) doneWithinPeriod(since, now time.Time) ([]string, error) {
	handles, err := s.Store.List(vault.Done)
	if err != nil {
		return nil, fmt.Errorf("summarizer: listing done: %w", err)
	}
	var out []string
	for _, h := range handles {
		info, err := os.Stat(h.Path(s.Store.Root))
		if err != nil {
			continue
		}
		mod := info.ModTime()
		if mod.Before(since) || mod.After(now) {
			continue
		}
		out = append(out, h.Name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Summarizer) bottlenecks(now time.Time) ([]Bottleneck, error) {
	var out []Bottleneck
	for _, folder := range []string{vault.NeedsAction, vault.PendingApproval} {
		handles, err := s.Store.List(folder)
		if err != nil {
			return nil, fmt.Errorf("summarizer: listing %s: %w", folder, err)
		}
		for _, h := range handles {
			info, err := os.Stat(h.Path(s.Store.Root))
			if err != nil {
				continue
			}
			age := now.Sub(info.ModTime())
			if age < BottleneckAge {
				continue
			}
			out = append(out, Bottleneck{Folder: folder, Name: h.Name, AgeHrs: age.Hours()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgeHrs > out[j].AgeHrs })
	return out, nil
}

// Render serializes a Report as markdown in the teacher's briefing style.
func Render(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Briefing: %s to %s\n\n", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))

	b.WriteString("## Actions\n\n")
	if len(r.ActionCount) == 0 {
		b.WriteString("No logged actions in this period.\n\n")
	} else {
		keys := make([]string, 0, len(r.ActionCount))
		for k := range r.ActionCount {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %d\n", k, r.ActionCount[k])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Completed\n\n")
	if len(r.Done) == 0 {
		b.WriteString("Nothing moved to Done in this period.\n\n")
	} else {
		for _, name := range r.Done {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Bottlenecks\n\n")
	if len(r.Bottlenecks) == 0 {
		b.WriteString("Nothing stuck past 24 hours.\n")
	} else {
		for _, bn := range r.Bottlenecks {
			fmt.Fprintf(&b, "- %s/%s — %.1fh\n", bn.Folder, bn.Name, bn.AgeHrs)
		}
	}

	return b.String()
}

// Save renders r and writes it to Briefings/<yyyy-mm-dd>_Briefing.md,
// named for the report's end date.
func (s *Summarizer) Save(r *Report) (vault.Handle, error) {
	name := fmt.Sprintf("%s_Briefing.md", r.End.UTC().Format("2006-01-02"))
	header := vault.NewHeader()
	header.Set("type", "briefing")
	header.Set("created", r.End.UTC().Format(time.RFC3339))
	return s.Store.Write(vault.Briefings, name, header, Render(r))
}

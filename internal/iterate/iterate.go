// Package iterate implements the "loop until done" driver (§4.L) for
// assistant tasks that cannot finish in a single turn: it keeps
// re-invoking the assistant, feeding back the previous output, until a
// completion strategy reports the task done or max_iterations is hit.
package iterate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/digitalfte/fte/internal/assistant"
	"github.com/digitalfte/fte/internal/vault"
)

// Strategy names the completion detector an iteration run uses.
type Strategy string

const (
	// PromiseTag completes when the assistant's output contains the
	// literal marker promiseTagMarker.
	PromiseTag Strategy = "promise_tag"
	// FileMovement completes when TaskFile now exists under Done/.
	FileMovement Strategy = "file_movement"
)

const promiseTagMarker = "<promise>TASK_COMPLETE</promise>"

const previewLength = 200

// DefaultMaxIterations bounds a run that doesn't specify one.
const DefaultMaxIterations = 10

// DefaultTimeout is the per-turn assistant invocation bound (§5: 300s
// for iterative-mode assistant calls).
const DefaultTimeout = 300 * time.Second

// Task describes one loop-until-done run.
type Task struct {
	Prompt        string
	MaxIterations int
	Strategy      Strategy
	TaskFile      string // required for FileMovement; the Done/ filename to watch for
	Model         string
	Timeout       time.Duration
}

// Result is what a completed (or exhausted) run returns.
type Result struct {
	Completed  bool
	Iterations int
	Strategy   Strategy
	Output     string
}

// snapshot is persisted after every iteration so a crashed run can be
// inspected (and, in principle, resumed by a caller that re-reads it).
type snapshot struct {
	TaskPrompt     string    `json:"task_prompt"`
	Iteration      int       `json:"iteration"`
	PreviousOutput string    `json:"previous_output"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// logEntry is one row of the per-run iteration log.
type logEntry struct {
	I             int       `json:"i"`
	Timestamp     time.Time `json:"timestamp"`
	PromptLength  int       `json:"prompt_length"`
	OutputLength  int       `json:"output_length"`
	OutputPreview string    `json:"output_preview"`
}

// Driver runs iterative tasks, persisting snapshots and a log under Dir.
type Driver struct {
	Assistant assistant.Assistant
	Store     *vault.Store // only consulted for FileMovement completion
	Dir       string        // directory snapshots/logs are written under
}

// New returns a Driver using the given assistant, store (for
// file-movement completion checks), and snapshot directory.
func New(a assistant.Assistant, store *vault.Store, dir string) *Driver {
	return &Driver{Assistant: a, Store: store, Dir: dir}
}

// Run drives task to completion or exhaustion, writing a snapshot after
// every iteration and a single iteration-log file at the end.
func (d *Driver) Run(ctx context.Context, task Task) (*Result, error) {
	maxIterations := task.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if task.Strategy == FileMovement && task.TaskFile == "" {
		return nil, fmt.Errorf("iterate: file_movement strategy requires a task file")
	}

	var entries []logEntry
	var previousOutput string
	var lastOutput string
	completed := false
	i := 0

	for ; i < maxIterations; i++ {
		prompt := d.buildPrompt(task, i, maxIterations, previousOutput)

		output, err := d.Assistant.Invoke(ctx, prompt, task.Model, timeout)
		if err != nil {
			return nil, fmt.Errorf("iterate: iteration %d: %w", i+1, err)
		}
		lastOutput = output
		previousOutput = output

		entries = append(entries, logEntry{
			I:             i + 1,
			Timestamp:     time.Now().UTC(),
			PromptLength:  len(prompt),
			OutputLength:  len(output),
			OutputPreview: preview(output),
		})

		if err := d.writeSnapshot(task.Prompt, i+1, output); err != nil {
			return nil, err
		}

		if d.isComplete(task, output) {
			completed = true
			i++
			break
		}
	}

	if err := d.writeLog(entries); err != nil {
		return nil, err
	}

	return &Result{
		Completed:  completed,
		Iterations: i,
		Strategy:   task.Strategy,
		Output:     lastOutput,
	}, nil
}

func (d *Driver) buildPrompt(task Task, i, maxIterations int, previousOutput string) string {
	if i == 0 {
		return task.Prompt
	}
	return fmt.Sprintf(
		"Continue; here is your previous output: %s\nIteration %d of %d; emit %s when done.",
		previousOutput, i+1, maxIterations, promiseTagMarker,
	)
}

func (d *Driver) isComplete(task Task, output string) bool {
	switch task.Strategy {
	case FileMovement:
		return d.Store.Exists(vault.Done, task.TaskFile)
	default:
		return strings.Contains(output, promiseTagMarker)
	}
}

func preview(s string) string {
	if len(s) <= previewLength {
		return s
	}
	return s[:previewLength]
}

func (d *Driver) writeSnapshot(taskPrompt string, iteration int, output string) error {
	s := snapshot{
		TaskPrompt:     taskPrompt,
		Iteration:      iteration,
		PreviousOutput: output,
		UpdatedAt:      time.Now().UTC(),
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(d.Dir, "snapshot.json"), data)
}

func (d *Driver) writeLog(entries []logEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("iterations-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	return writeAtomic(filepath.Join(d.Dir, name), data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Package orchestrator turns per-file rewrite requests into accepted
// rewrites, guaranteed-diff fallbacks, or explicit failures. Files are
// processed by a bounded worker pool; nothing is written here.
package orchestrator

import (
	"errors"

	"github.com/dusk-indust/blueprint/internal/blueprint"
)

// Update is one file's rewrite request. RelativePath is unique within a
// commit; CurrentContent and Exists are filled in when the file is read.
type Update struct {
	RelativePath string             `json:"relativePath"`
	AbsolutePath string             `json:"absolutePath"`
	NodeKind     blueprint.NodeKind `json:"nodeKind"`
	NodeIDs      []string           `json:"nodeIds"`
	// Instructions holds each contributing node's text in graph order.
	Instructions   []string `json:"instructions"`
	CurrentContent string   `json:"-"`
	Exists         bool     `json:"exists"`
	// LanguageHint is the indexer language name, e.g. "markdown" or "go".
	// Empty when the extension is not recognized.
	LanguageHint string `json:"languageHint,omitempty"`
}

// Status is the terminal state of one file.
type Status string

const (
	StatusAccepted        Status = "accepted"
	StatusFallbackApplied Status = "fallback_applied"
	StatusFailed          Status = "failed"
	StatusSkipped         Status = "skipped"
)

// Writable reports whether the result carries content to persist.
func (s Status) Writable() bool {
	return s == StatusAccepted || s == StatusFallbackApplied
}

// Result is the outcome for one Update.
type Result struct {
	Update         Update  `json:"update"`
	Status         Status  `json:"status"`
	Content        string  `json:"-"`
	Attempts       int     `json:"attempts"`
	ForcedFallback bool    `json:"forcedFallback"`
	FallbackReason string  `json:"fallbackReason,omitempty"`
	ChangeRatio    float64 `json:"changeRatio"`
	Err            error   `json:"-"`
}

// Changed reports whether the result's content differs from the file.
func (r Result) Changed() bool {
	return r.Status.Writable() && r.Content != r.Update.CurrentContent
}

// Sentinel rejections. The first three are retried by the attempt loop.
var (
	ErrEmptyOutput     = errors.New("oracle returned empty content")
	ErrUnchangedOutput = errors.New("oracle returned unchanged content")
	ErrQualityRejected = errors.New("quality threshold not met")
	ErrFileTooLarge    = errors.New("file too large to rewrite")
	ErrNoInstructions  = errors.New("no instructions")
)

// ProgressEvent reports a file's progress through the pool.
type ProgressEvent struct {
	Path    string
	Status  ProgressStatus
	Attempt int
	Message string
}

// ProgressStatus is the state of a file within a run.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Observer receives per-attempt and per-file outcomes, e.g. for metrics.
type Observer interface {
	ObserveAttempt(path string, attempt int, err error)
	ObserveResult(r Result)
}

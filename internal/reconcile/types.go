// Package reconcile compares a blueprint graph with the indexed codebase and
// commits per-node instructions as file rewrites.
package reconcile

import (
	"github.com/dusk-indust/blueprint/internal/blueprint"
)

// PlanItemType classifies a reviewable change.
type PlanItemType string

const (
	PlanChangeImport     PlanItemType = "change_import"
	PlanDeleteImport     PlanItemType = "delete_import"
	PlanMoveFile         PlanItemType = "move_file"
	PlanCreateFile       PlanItemType = "create_file"
	PlanCreateModule     PlanItemType = "create_module"
	PlanExtractModule    PlanItemType = "extract_module"
	PlanRenameSymbol     PlanItemType = "rename_symbol"
	PlanUpdateFileGoal   PlanItemType = "update_file_goal"
	PlanAddDependency    PlanItemType = "add_dependency"
	PlanRemoveDependency PlanItemType = "remove_dependency"
	PlanManualReview     PlanItemType = "manual_review"
)

// PlanItem is one discrete change in a commit report.
type PlanItem struct {
	ID         string       `json:"id"`
	Type       PlanItemType `json:"type"`
	Path       string       `json:"path,omitempty"`
	FromPath   string       `json:"fromPath,omitempty"`
	ToPath     string       `json:"toPath,omitempty"`
	Reason     string       `json:"reason"`
	Confidence float64      `json:"confidence"`
}

// EdgeRef is a file-to-file dependency by repo-relative path.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (e EdgeRef) key() string { return e.Source + "=>" + e.Target }

// File actions reported in ChangedFile.Action.
const (
	ActionUpdated   = "updated"
	ActionCreated   = "created"
	ActionUnchanged = "unchanged"
	ActionFailed    = "failed"
)

// ChangedFile reports what happened to one instructed file.
type ChangedFile struct {
	FilePath        string  `json:"filePath"`
	Action          string  `json:"action"`
	Changed         bool    `json:"changed"`
	BytesBefore     int     `json:"bytesBefore"`
	BytesAfter      int     `json:"bytesAfter"`
	Instructions    string  `json:"instructions"`
	RewriteAttempts int     `json:"rewriteAttempts"`
	ForcedFallback  bool    `json:"forcedFallback"`
	FallbackReason  string  `json:"fallbackReason,omitempty"`
	ChangeRatio     float64 `json:"changeRatio"`
	Error           string  `json:"error,omitempty"`
}

// Comparison summarizes the blueprint against the source index.
type Comparison struct {
	CurrentEdgeCount       int       `json:"currentEdgeCount"`
	DesiredEdgeCount       int       `json:"desiredEdgeCount"`
	MappedDesiredEdgeCount int       `json:"mappedDesiredEdgeCount"`
	AddedEdges             []EdgeRef `json:"addedEdges"`
	RemovedEdges           []EdgeRef `json:"removedEdges"`
	MappingCoverage        float64   `json:"mappingCoverage"`
	ActualGoalCount        int       `json:"actualGoalCount"`
	BlueprintGoalCount     int       `json:"blueprintGoalCount"`
	AppliedCount           int       `json:"appliedCount"`
	SkippedCount           int       `json:"skippedCount"`
}

// Request is one commit.
type Request struct {
	Payload blueprint.Payload
	// Warnings from decoding the payload, carried into the response.
	Warnings []string
	// DryRun computes rewrites without writing files or updating the index.
	DryRun bool
}

// Response is the commit report.
type Response struct {
	CommitID     string        `json:"commitId"`
	Summary      string        `json:"summary"`
	Applied      bool          `json:"applied"`
	DryRun       bool          `json:"dryRun"`
	Plan         []PlanItem    `json:"plan"`
	Warnings     []string      `json:"warnings"`
	Questions    []string      `json:"questions"`
	ChangedFiles []ChangedFile `json:"changedFiles"`
	Comparison   Comparison    `json:"comparison"`
}

func newResponse(id string, dryRun bool) *Response {
	return &Response{
		CommitID:     id,
		DryRun:       dryRun,
		Plan:         []PlanItem{},
		Warnings:     []string{},
		Questions:    []string{},
		ChangedFiles: []ChangedFile{},
		Comparison: Comparison{
			AddedEdges:      []EdgeRef{},
			RemovedEdges:    []EdgeRef{},
			MappingCoverage: 1,
		},
	}
}

package pipeline

import "cvforge/internal/types"

// Stage identifies a pipeline stage for logging and outcome reporting.
type Stage string

const (
	StageStore    Stage = "store"
	StageParse    Stage = "parse"
	StageBlurb    Stage = "blurb"
	StageLocation Stage = "location"
	StagePersist  Stage = "persist"
	StageRender   Stage = "render"
)

// stageOrder is the fixed execution sequence; the run ledger is built
// from it so callers see every stage, not only the ones that ran.
var stageOrder = []Stage{StageStore, StageParse, StageBlurb, StageLocation, StagePersist, StageRender}

var stageDescriptions = map[Stage]string{
	StageStore:    "Uploading CV to cloud storage",
	StageParse:    "Extracting information from CV",
	StageBlurb:    "Generating career summary",
	StageLocation: "Classifying work locations",
	StagePersist:  "Saving processed CV data",
	StageRender:   "Generating final document",
}

// Status classifies the final outcome of a run.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusRecoverable Status = "recoverable_failure"
	StatusFatal       Status = "fatal_failure"
)

// StageStatus tracks one stage's progress within a run.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageSucceeded  StageStatus = "succeeded"
	StageFailed     StageStatus = "failed"
)

// StageOutcome is one entry in a run's stage ledger.
type StageOutcome struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
}

// maxRunMessages bounds the accumulated message list per run.
const maxRunMessages = 100

// Result is the outcome of a single pipeline run. On success every field
// is populated; on failure Stage and either UserMessage or Diagnostic
// say where and why the run stopped. Stages holds the full per-stage
// ledger in execution order and Messages the accumulated progress feed;
// both live only for the life of the run.
type Result struct {
	Status       Status              `json:"status"`
	Stage        Stage               `json:"stage,omitempty"`
	Key          string              `json:"key,omitempty"`
	RemoteURL    string              `json:"remote_url,omitempty"`
	UserMessage  string              `json:"user_message,omitempty"`
	Diagnostic   string              `json:"diagnostic,omitempty"`
	Record       *types.CVRecord     `json:"record,omitempty"`
	Context      types.RenderContext `json:"context,omitempty"`
	DocumentPath string              `json:"document_path,omitempty"`
	Stages       []StageOutcome      `json:"stages,omitempty"`
	Messages     []string            `json:"messages,omitempty"`
}

// Succeeded reports whether the run completed all stages.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// newStageLedger returns the full stage sequence, all pending.
func newStageLedger() []StageOutcome {
	ledger := make([]StageOutcome, len(stageOrder))
	for i, stage := range stageOrder {
		ledger[i] = StageOutcome{Stage: stage, Status: StagePending}
	}
	return ledger
}

// markStage updates the ledger entry for the given stage.
func (r *Result) markStage(stage Stage, status StageStatus) {
	for i := range r.Stages {
		if r.Stages[i].Stage == stage {
			r.Stages[i].Status = status
			return
		}
	}
}

// StageStatusOf returns the ledger status for a stage, or pending when
// the stage never entered the ledger.
func (r *Result) StageStatusOf(stage Stage) StageStatus {
	for _, s := range r.Stages {
		if s.Stage == stage {
			return s.Status
		}
	}
	return StagePending
}

// addMessage appends to the progress feed, keeping the most recent
// entries when the cap is hit.
func (r *Result) addMessage(msg string) {
	r.Messages = append(r.Messages, msg)
	if len(r.Messages) > maxRunMessages {
		r.Messages = r.Messages[len(r.Messages)-maxRunMessages:]
	}
}

func stageDescription(stage Stage) string {
	if d, ok := stageDescriptions[stage]; ok {
		return d
	}
	return string(stage)
}

package domain

import (
	"time"
)

// Stage names a step of a scrape run.
type Stage string

const (
	StageAuthentication Stage = "authentication"
	StageNavigation     Stage = "navigation"
	StageExtraction     Stage = "extraction"
	StagePagination     Stage = "pagination"
)

// StatusKind is the tag of a run outcome.
type StatusKind string

const (
	StatusSuccess        StatusKind = "success"
	StatusPartialFailure StatusKind = "partial_failure"
	StatusFailure        StatusKind = "failure"
)

// Status is the tagged outcome of a run. Stage is only set for a partial failure.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Stage  Stage      `json:"stage,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

func Success() Status {
	return Status{Kind: StatusSuccess}
}

func PartialFailure(stage Stage, reason string) Status {
	return Status{Kind: StatusPartialFailure, Stage: stage, Reason: reason}
}

func Failure(reason string) Status {
	return Status{Kind: StatusFailure, Reason: reason}
}

func (s Status) String() string {
	switch s.Kind {
	case StatusPartialFailure:
		return string(s.Kind) + "{" + string(s.Stage) + ": " + s.Reason + "}"
	case StatusFailure:
		return string(s.Kind) + "{" + s.Reason + "}"
	default:
		return string(s.Kind)
	}
}

// ScrapeResult is the outcome of one run: every record in page-then-row order.
type ScrapeResult struct {
	Records    []ProductRecord `json:"records"`
	Status     Status          `json:"status"`
	Pages      int             `json:"pages"`
	Warnings   []string        `json:"warnings,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Failed reports whether the run aborted before extraction.
func (r *ScrapeResult) Failed() bool {
	return r.Status.Kind == StatusFailure
}

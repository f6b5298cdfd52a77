package scrape

import (
	"time"

	scrapeUC "github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
)

// AcceptedDTO acknowledges a run started in the background.
type AcceptedDTO struct {
	BrandID int64  `json:"brand_id"`
	Status  string `json:"status"`
}

// ConflictDTO reports a held scrape lock. StartedAt is omitted when the
// holding run's start time is unknown.
type ConflictDTO struct {
	Error     string     `json:"error"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// ReportDTO renders one finished run.
type ReportDTO struct {
	RunID             string    `json:"run_id"`
	BrandID           int64     `json:"brand_id"`
	Status            string    `json:"status"`
	CandidatesFound   int       `json:"candidates_found"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	MentionsCreated   int       `json:"mentions_created"`
	StartedAt         time.Time `json:"started_at"`
	DurationMS        int64     `json:"duration_ms"`
}

func reportDTO(report *scrapeUC.Report) ReportDTO {
	return ReportDTO{
		RunID:             report.RunID,
		BrandID:           report.BrandID,
		Status:            report.Status,
		CandidatesFound:   report.CandidatesFound,
		DuplicatesRemoved: report.DuplicatesRemoved,
		MentionsCreated:   report.MentionsCreated,
		StartedAt:         report.StartedAt,
		DurationMS:        report.Duration.Milliseconds(),
	}
}

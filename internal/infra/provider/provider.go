// Package provider implements article discovery against external sources.
// Each provider turns a keyword set and a date window into raw candidates;
// the orchestrator aggregates, dedups and scores them.
package provider

import (
	"context"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// Request is the input shared by all providers for one run.
type Request struct {
	// Keywords are cleaned, non-empty search terms or rendered query
	// strings.
	Keywords []string
	// From is the cutoff; candidates published before it are dropped when
	// their date is trustworthy.
	From time.Time
	To   time.Time
	// Languages restricts API providers that support a language parameter.
	Languages []string
	RunID     string
}

// Provider discovers article candidates for a keyword set. Implementations
// must return partial results with a nil error wherever possible; the
// orchestrator treats a returned error as provider-level failure but still
// keeps whatever candidates came back with it.
type Provider interface {
	Name() string
	Scrape(ctx context.Context, req Request) ([]entity.RawCandidate, error)
}

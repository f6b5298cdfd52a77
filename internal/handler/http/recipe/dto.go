package recipe

import (
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/analyzer"
)

type DTO struct {
	ID               int64     `json:"id"`
	Domain           string    `json:"domain"`
	DiscoveryType    string    `json:"discovery_type"`
	SearchURLPattern string    `json:"search_url_pattern,omitempty"`
	SitemapURL       string    `json:"sitemap_url,omitempty"`
	RSSURLs          []string  `json:"rss_urls,omitempty"`
	TitleSelector    string    `json:"title_selector,omitempty"`
	ContentSelector  string    `json:"content_selector,omitempty"`
	DateSelector     string    `json:"date_selector,omitempty"`
	RequiresJS       bool      `json:"requires_js"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toDTO(e *entity.SourceRecipe) DTO {
	return DTO{
		ID:               e.ID,
		Domain:           e.Domain,
		DiscoveryType:    string(e.DiscoveryType),
		SearchURLPattern: e.SearchURLPattern,
		SitemapURL:       e.SitemapURL,
		RSSURLs:          e.RSSURLs,
		TitleSelector:    e.TitleSelector,
		ContentSelector:  e.ContentSelector,
		DateSelector:     e.DateSelector,
		RequiresJS:       e.RequiresJS,
		UpdatedAt:        e.UpdatedAt,
	}
}

// AnalysisDTO renders one analyzer outcome.
type AnalysisDTO struct {
	Domain       string `json:"domain"`
	Confidence   string `json:"confidence"`
	VerifiedWith string `json:"verified_with,omitempty"`
	Saved        bool   `json:"saved"`
	Recipe       *DTO   `json:"recipe,omitempty"`
}

func toAnalysisDTO(result *analyzer.Result) AnalysisDTO {
	out := AnalysisDTO{
		Domain:       result.Domain,
		Confidence:   result.Confidence,
		VerifiedWith: result.VerifiedWith,
		Saved:        result.Saved,
	}
	if result.Recipe != nil {
		dto := toDTO(result.Recipe)
		out.Recipe = &dto
	}
	return out
}

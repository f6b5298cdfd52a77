package analyzer

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Query parameter names that carry the search term on Danish news sites.
var searchParamNames = []string{"q", "query", "search", "s", "sog", "søg"}

// detectSearchPattern finds the site's search URL pattern: first a scan of
// the homepage's search forms, then the LLM fallback. A detected pattern is
// only kept when a live test query does not look like a 404.
func (a *Analyzer) detectSearchPattern(ctx context.Context, homepageHTML []byte, rootURL string) string {
	pattern := searchPatternFromForms(homepageHTML, rootURL)
	if pattern == "" {
		pattern = a.askSearchPattern(ctx, homepageHTML)
	}
	if pattern == "" {
		return ""
	}
	if !a.testSearchPattern(ctx, pattern) {
		a.logger.Warn("search pattern failed live test", slog.String("pattern", pattern))
		return ""
	}
	return pattern
}

// searchPatternFromForms scans GET forms for a text/search input whose name
// is a known search parameter and renders the pattern from the form action.
func searchPatternFromForms(homepageHTML []byte, rootURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(homepageHTML)))
	if err != nil {
		return ""
	}
	base, err := url.Parse(rootURL)
	if err != nil {
		return ""
	}

	var pattern string
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if method, _ := form.Attr("method"); method != "" && !strings.EqualFold(method, "get") {
			return true
		}

		paramName := ""
		form.Find("input").EachWithBreak(func(_ int, input *goquery.Selection) bool {
			name, _ := input.Attr("name")
			if name == "" {
				return true
			}
			inputType, _ := input.Attr("type")
			if inputType != "" && inputType != "text" && inputType != "search" {
				return true
			}
			for _, known := range searchParamNames {
				if strings.EqualFold(name, known) {
					paramName = name
					return false
				}
			}
			return true
		})
		if paramName == "" {
			return true
		}

		action, _ := form.Attr("action")
		resolved, err := base.Parse(strings.TrimSpace(action))
		if err != nil {
			return true
		}
		query := resolved.Query()
		query.Del(paramName)
		resolved.RawQuery = query.Encode()

		separator := "?"
		if resolved.RawQuery != "" {
			separator = "&"
		}
		pattern = resolved.String() + separator + paramName + "={keyword}"
		return false
	})
	return pattern
}

// soft404Markers flag result pages that answer 200 but are really an error
// or empty-search page.
var soft404Markers = []string{
	"page not found",
	"siden blev ikke fundet",
	"siden findes ikke",
	"vi kunne ikke finde siden",
	"fejl 404",
	"error 404",
}

// testSearchPattern runs one query through the pattern and rejects hard
// errors and soft 404s. Network-level flakiness keeps the pattern.
func (a *Analyzer) testSearchPattern(ctx context.Context, pattern string) bool {
	testURL := strings.ReplaceAll(pattern, "{keyword}", url.QueryEscape("nyheder"))
	body, err := a.fetch(ctx, testURL)
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range soft404Markers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// Substrings that disqualify a homepage link as a sample article. Short
// words keep their slashes so "tag" cannot match inside "fredag".
var articleLinkBlacklist = []string{
	"e-avis", "login", "log-ind", "shop",
	"abonnement", "kundeservice", "auth", ".pdf",
	"tilbud", "annonce", "/profile/", "/user/",
	"minside", "arkiv", "nyhedsbreve", "/podcast/",
	"/video/", "galleri", "/play/",
	"/tag/", "/kategori/", "/emne/", "/tema/", "/sektion/",
}

const minArticlePathChars = 30

// findArticleURL returns the first homepage link that looks like a real
// article on the domain: not blacklisted, same domain or subdomain, and a
// slug-length path.
func findArticleURL(homepageHTML []byte, domain string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(homepageHTML)))
	if err != nil {
		return ""
	}
	base, err := url.Parse("https://" + domain)
	if err != nil {
		return ""
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		resolved, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}

		full := resolved.String()
		lower := strings.ToLower(full)
		for _, keyword := range articleLinkBlacklist {
			if strings.Contains(lower, keyword) {
				return true
			}
		}
		if !strings.Contains(resolved.Host, strings.TrimPrefix(domain, "www.")) {
			return true
		}
		if len(resolved.Path) < minArticlePathChars {
			return true
		}
		found = full
		return false
	})
	return found
}

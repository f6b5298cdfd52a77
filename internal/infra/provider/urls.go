package provider

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
)

// Article-likeness heuristics for discovered links. A link counts as an
// article when its path carries at least one article signal (date path,
// article id, long slug) and no disqualifying segment or extension.

var (
	articleDatePathPattern = regexp.MustCompile(`/20\d{2}/\d{2}/\d{2}/`)
	articleIDPathPattern   = regexp.MustCompile(`(?i)(?:article|art)\d{5,}|/\d{6,}([./-]|/|$)`)
	longSlugPattern        = regexp.MustCompile(`(?i)^[a-z0-9æøå]+(?:-[a-z0-9æøå]+){2,}$`)
)

var nonArticleExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp",
	".pdf", ".xml", ".rss",
	".mp3", ".mp4", ".mov", ".avi",
	".zip", ".css", ".js", ".json",
}

var nonArticleSegments = map[string]struct{}{
	"tag": {}, "tags": {}, "live": {},
	"services": {}, "service": {},
	"abonnement": {}, "abonnementer": {}, "kampagner": {},
	"faq": {}, "kontakt": {},
	"cookiepolitik": {}, "cookies": {},
	"persondata-politik": {}, "privatlivspolitik": {},
	"tilgaengelighed": {}, "nyhedsbreve": {}, "mine-sider": {},
}

func isLikelyArticleSlug(segment string) bool {
	if len(segment) < 20 {
		return false
	}
	return longSlugPattern.MatchString(segment)
}

// isCandidateArticleURL reports whether a discovered link plausibly points to
// an article on sourceDomain (or one of its subdomains).
func isCandidateArticleURL(rawURL, sourceDomain string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if !sameOrSubdomain(parsed.Hostname(), sourceDomain) {
		return false
	}

	path := strings.TrimSpace(parsed.Path)
	if path == "" || path == "/" {
		return false
	}
	lowerPath := strings.ToLower(path)
	for _, ext := range nonArticleExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return false
		}
	}

	normalizedPath := strings.TrimRight(lowerPath, "/")
	segments := strings.Split(strings.Trim(normalizedPath, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return false
	}

	hasDatePath := articleDatePathPattern.MatchString(normalizedPath + "/")
	hasArticleID := articleIDPathPattern.MatchString(normalizedPath)
	hasSlugSignal := false
	for _, segment := range segments {
		if isLikelyArticleSlug(segment) {
			hasSlugSignal = true
			break
		}
	}
	if !hasDatePath && !hasArticleID && !hasSlugSignal {
		return false
	}

	// Category-like segments disqualify slug-only matches; a date path or
	// article id is a strong enough signal to keep the link anyway.
	for _, segment := range segments {
		if _, bad := nonArticleSegments[segment]; bad {
			if !hasDatePath && !hasArticleID {
				return false
			}
			break
		}
	}
	return true
}

func sameOrSubdomain(host, domain string) bool {
	hostNorm := urlutil.Hostname(host)
	domainNorm := urlutil.Hostname(domain)
	if hostNorm == "" || domainNorm == "" {
		return false
	}
	return hostNorm == domainNorm || strings.HasSuffix(hostNorm, "."+domainNorm)
}

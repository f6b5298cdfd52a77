// Package urlutil provides URL canonicalization for the scraping pipeline.
// Normalized URLs are the dedup identity of a mention, eTLD+1 is the
// rate-limit and dedup-blocking key.
package urlutil

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// trackingParams are query parameters stripped during normalization. Any
// parameter starting with "utm" is stripped as well.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"mc_eid": {},
	"ref":    {},
	"source": {},
}

// NormalizeURL canonicalizes a URL so the same article discovered through
// different providers maps to one string: lowercased scheme and host, www
// prefix and default port dropped, fragment removed, tracking parameters
// removed, remaining query parameters sorted, trailing slashes trimmed.
// The function is idempotent. Unparseable input is returned trimmed as-is.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if port := u.Port(); port != "" {
		if !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
			host = host + ":" + port
		}
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	query := normalizeQuery(u.Query())

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}
	return b.String()
}

func normalizeQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm") {
			continue
		}
		if _, tracked := trackingParams[lower]; tracked {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		for _, value := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
		}
	}
	return strings.Join(parts, "&")
}

// Hostname extracts the lowercased host of a URL without scheme, userinfo,
// port or www prefix. Returns "" for unparseable input.
func Hostname(urlOrHost string) string {
	value := strings.ToLower(strings.TrimSpace(urlOrHost))
	if value == "" {
		return ""
	}
	if strings.Contains(value, "://") {
		u, err := url.Parse(value)
		if err != nil {
			return ""
		}
		value = u.Host
	}
	if at := strings.LastIndex(value, "@"); at >= 0 {
		value = value[at+1:]
	}
	if colon := strings.Index(value, ":"); colon >= 0 {
		value = value[:colon]
	}
	return strings.TrimPrefix(value, "www.")
}

// ETLDPlusOne returns the registrable domain of a URL or host
// (nyheder.tv2.dk -> tv2.dk). Falls back to the last two labels of the host
// when the public suffix list cannot determine the registrable part, and to
// "unknown" for empty input. Never returns an empty string.
func ETLDPlusOne(urlOrHost string) string {
	host := Hostname(urlOrHost)
	if host == "" {
		return "unknown"
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil || domain == "" {
		if labels := strings.Split(host, "."); len(labels) > 2 {
			return strings.Join(labels[len(labels)-2:], ".")
		}
		return host
	}
	return strings.ToLower(domain)
}

// DomainCandidates returns the hostnames to try when looking up per-domain
// configuration, most specific first: the normalized host itself, then each
// parent down to the registrable domain. nyheder.sport.tv2.dk yields
// [nyheder.sport.tv2.dk, sport.tv2.dk, tv2.dk]. Unparseable input yields nil.
func DomainCandidates(urlOrHost string) []string {
	host := Hostname(urlOrHost)
	if host == "" {
		return nil
	}

	registrable := ETLDPlusOne(host)
	candidates := []string{host}
	for host != registrable {
		dot := strings.Index(host, ".")
		if dot < 0 {
			break
		}
		host = host[dot+1:]
		if host == "" {
			break
		}
		candidates = append(candidates, host)
	}
	return candidates
}

package resolve

import (
	"net/url"
	"regexp"
	"strings"
)

// knownDomains maps a bare keyword (as typically spoken) to its canonical
// web host, used when promoting open_app to open_url and when inferring a
// resolver's initial page.
var knownDomains = map[string]string{
	"youtube":    "www.youtube.com",
	"gmail":      "mail.google.com",
	"github":     "github.com",
	"google":     "www.google.com",
	"maps":       "maps.google.com",
	"drive":      "drive.google.com",
	"docs":       "docs.google.com",
	"amazon":     "www.amazon.com",
	"facebook":   "www.facebook.com",
	"twitter":    "www.twitter.com",
	"x":          "x.com",
	"instagram":  "www.instagram.com",
	"linkedin":   "www.linkedin.com",
	"netflix":    "www.netflix.com",
	"spotify":    "open.spotify.com",
	"reddit":     "www.reddit.com",
	"whatsapp":   "web.whatsapp.com",
	"slack":      "slack.com",
	"notion":     "www.notion.so",
	"wikipedia":  "www.wikipedia.org",
	"calendar":   "calendar.google.com",
	"outlook":    "outlook.office.com",
}

var tldStripRE = regexp.MustCompile(`\.(com|org|net|io|co|app|dev)$`)

var loginIntentRE = regexp.MustCompile(`(?i)\b(login|log in|log-in|sign in|sign-in)\b`)

// isLoginIntent reports whether the query expresses an intent to reach a
// login/sign-in surface.
func isLoginIntent(query string) bool {
	return loginIntentRE.MatchString(query)
}

// firstToken returns the lowercase first whitespace-delimited token of text.
func firstToken(text string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DomainForApp maps an app/site name to its web host for the router's
// open_app promotion: the known-name table first, else an alphanumeric
// slug of the name with ".com" appended. A name not in the table that
// contains a space maps to "" (no domain).
func DomainForApp(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if host, ok := knownDomains[key]; ok {
		return host
	}
	if strings.ContainsRune(key, ' ') {
		// A multi-word app name ("Activity Monitor") is a desktop app, not
		// a site; don't guess a domain for it.
		return ""
	}
	var slug strings.Builder
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			slug.WriteRune(r)
		}
	}
	if slug.Len() == 0 {
		return ""
	}
	return slug.String() + ".com"
}

// domainFromToken maps a first token to a host, trying the known-domain
// table before falling back to stripping common TLDs and appending .com.
func domainFromToken(token string) (string, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return "", false
	}
	if host, ok := knownDomains[token]; ok {
		return host, true
	}
	stripped := tldStripRE.ReplaceAllString(token, "")
	stripped = strings.TrimSpace(stripped)
	alnum := 0
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			alnum++
		}
	}
	if alnum < 3 {
		return "", false
	}
	return stripped + ".com", true
}

// inferInitialURL picks the first page to probe: if query is already a full
// URL use it as-is; else try the domain table / TLD-strip heuristic on the
// first token; else build a search-engine URL.
func inferInitialURL(query, searchTemplate string) string {
	trimmed := strings.TrimSpace(query)
	if looksLikeURL(trimmed) {
		return normalizeScheme(trimmed)
	}
	if host, ok := domainFromToken(firstToken(trimmed)); ok {
		return "https://" + host
	}
	return searchEngineURL(searchTemplate, trimmed)
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.Contains(lower, "www.") {
		return true
	}
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return false
	}
	return tldStripRE.MatchString(fields[0])
}

func normalizeScheme(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "http://") || strings.HasPrefix(strings.ToLower(s), "https://") {
		return s
	}
	return "https://" + s
}

// searchEngineURL builds a URL-encoded query against the configured
// search-engine template.
func searchEngineURL(template, query string) string {
	if template == "" {
		template = "https://duckduckgo.com/?q={query}"
	}
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(query))
}

// domainHomepage extracts a usable homepage URL from a raw query for the
// final fallback rung.
func domainHomepage(query string) (string, bool) {
	host, ok := domainFromToken(firstToken(query))
	if !ok {
		return "", false
	}
	return "https://" + host, true
}

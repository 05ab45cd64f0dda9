package filters

import (
	"strings"

	"warden/internal/settings"
)

type LinkFilter struct{}

func NewLinkFilter() *LinkFilter {
	return &LinkFilter{}
}

func (f *LinkFilter) Name() string { return "link" }

// Check extracts every URL from the text and intervenes on the first one no
// whitelist pattern matches. A pattern matches as a case-insensitive substring
// of the whole URL, not a parsed domain: "tenor.com" whitelists any URL that
// merely contains it. That imprecision is accepted; it matches how guild
// moderators populate the list.
func (f *LinkFilter) Check(content string, guild settings.Guild) (Match, bool) {
	if !guild.LinkFilter {
		return Match{}, false
	}

	for _, raw := range ExtractURLs(content) {
		if whitelisted(raw, guild.WhitelistedLinks) {
			continue
		}
		reason := "link: " + raw
		if domain, err := NormalizeDomain(raw); err == nil && domain != "" {
			reason = "link: " + domain
		}
		return Match{Filter: f.Name(), Reason: reason}, true
	}
	return Match{}, false
}

func whitelisted(rawURL string, patterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

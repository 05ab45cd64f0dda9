package filters

import (
	"strings"

	"warden/internal/settings"
)

type WordFilter struct{}

func NewWordFilter() *WordFilter {
	return &WordFilter{}
}

func (f *WordFilter) Name() string { return "word" }

// Check does a case-insensitive substring scan against the guild word list.
// The first match wins; there is no need to collect all of them.
func (f *WordFilter) Check(content string, guild settings.Guild) (Match, bool) {
	if len(guild.FilteredWords) == 0 {
		return Match{}, false
	}
	lower := strings.ToLower(content)
	for _, word := range guild.FilteredWords {
		if word == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(word)) {
			return Match{Filter: f.Name(), Reason: "filtered word: " + word}, true
		}
	}
	return Match{}, false
}

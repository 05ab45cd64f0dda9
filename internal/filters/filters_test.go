package filters

import (
	"testing"

	"warden/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordFilterMatchesCaseInsensitive(t *testing.T) {
	filter := NewWordFilter()
	guild := settings.Guild{FilteredWords: []string{"banned", "other"}}

	match, hit := filter.Check("this contains BANNED somewhere", guild)
	require.True(t, hit)
	assert.Equal(t, "word", match.Filter)
	assert.Contains(t, match.Reason, "banned")
}

func TestWordFilterCleanContentIsUntouched(t *testing.T) {
	filter := NewWordFilter()
	guild := settings.Guild{FilteredWords: []string{"banned"}}

	_, hit := filter.Check("a perfectly fine message", guild)
	assert.False(t, hit)

	_, hit = filter.Check("anything at all", settings.Guild{})
	assert.False(t, hit)
}

func TestInviteFilter(t *testing.T) {
	filter := NewInviteFilter()
	enabled := settings.Guild{}
	enabled.InviteFilter = true

	for _, content := range []string{
		"join discord.gg/abc123",
		"https://discord.com/invite/xyz",
		"DISCORD.GG/LOUD",
	} {
		_, hit := filter.Check(content, enabled)
		assert.True(t, hit, "expected invite match in %q", content)
	}

	_, hit := filter.Check("no invites here, just discord talk", enabled)
	assert.False(t, hit)

	disabled := settings.Guild{}
	_, hit = filter.Check("discord.gg/abc123", disabled)
	assert.False(t, hit, "disabled filter must not intervene")
}

func TestLinkFilterWhitelist(t *testing.T) {
	filter := NewLinkFilter()
	guild := settings.Guild{WhitelistedLinks: []string{"tenor.com"}}
	guild.LinkFilter = true

	_, hit := filter.Check("look https://tenor.com/view/funny-gif", guild)
	assert.False(t, hit, "whitelisted link must pass")

	_, hit = filter.Check("https://TENOR.com/view/funny-gif", guild)
	assert.False(t, hit, "whitelist matching is case-insensitive")

	bare := settings.Guild{}
	bare.LinkFilter = true
	match, hit := filter.Check("look https://tenor.com/view/funny-gif", bare)
	require.True(t, hit, "same message without whitelist entry is filtered")
	assert.Equal(t, "link", match.Filter)
}

func TestLinkFilterWhitelistDoesNotCoverOtherURLs(t *testing.T) {
	filter := NewLinkFilter()
	guild := settings.Guild{WhitelistedLinks: []string{"tenor.com"}}
	guild.LinkFilter = true

	match, hit := filter.Check("https://tenor.com/a and https://evil.example/b", guild)
	require.True(t, hit, "non-whitelisted URL alongside a whitelisted one is still filtered")
	assert.Equal(t, "link: evil.example", match.Reason)
}

func TestLinkFilterNormalizesDomain(t *testing.T) {
	filter := NewLinkFilter()
	guild := settings.Guild{}
	guild.LinkFilter = true

	match, hit := filter.Check("go to https://Example.COM/page?x=1", guild)
	require.True(t, hit)
	assert.Equal(t, "link: example.com", match.Reason)
}

func TestNormalizeDomain(t *testing.T) {
	domain, err := NormalizeDomain("https://Example.com/path?a=b")
	require.NoError(t, err)
	assert.Equal(t, "example.com", domain)

	domain, err = NormalizeDomain("bücher.example")
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example", domain)
}

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("a https://one.test b http://two.test c")
	assert.Equal(t, []string{"https://one.test", "http://two.test"}, urls)
	assert.Empty(t, ExtractURLs("no links"))
}

func TestWhitelisted(t *testing.T) {
	patterns := []string{"", "tenor.com"}
	assert.True(t, whitelisted("https://Tenor.COM/view", patterns))
	assert.False(t, whitelisted("https://example.org", patterns))
	assert.False(t, whitelisted("https://example.org", nil))
}

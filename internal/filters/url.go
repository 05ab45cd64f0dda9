package filters

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// NormalizeDomain lowercases and punycode-encodes the host of a URL so
// lookalike unicode domains compare equal to their ASCII form.
func NormalizeDomain(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	return host, nil
}

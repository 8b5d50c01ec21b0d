// Package safeurl validates upstream URLs before the bridge fetches them.
package safeurl

import "net/url"

// IsHTTPOrHTTPS reports whether u parses as a URL with scheme http or https
// and a non-empty host. Rejects file://, ftp://, and other schemes that
// could reach local files or non-HTTP services via provider configuration.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

package catalog

import (
	"regexp"
	"strings"
)

// Tier tokens scanned in the display name, best tier first. "FULL HD" and
// "FHD" must be stripped before the plain "HD" class runs, otherwise the HD
// pattern would see the residue. Trailing p/i on resolutions (1080p, 720i)
// is part of the token.
var tierPatterns = []struct {
	re   *regexp.Regexp
	tier QualityTier
}{
	{regexp.MustCompile(`(?i)\b(4k|uhd)\b`), Tier4K},
	{regexp.MustCompile(`(?i)\b(full[\s-]?hd|fhd|1080[pi]?)\b`), TierFHD},
	{regexp.MustCompile(`(?i)\b(hd|720[pi]?)\b`), TierHD},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DetectQuality scans name for tier tokens and returns the best tier found
// plus the name with all tier tokens removed and whitespace collapsed.
// No token means TierSD.
func DetectQuality(name string) (QualityTier, string) {
	tier := TierSD
	cleaned := name
	for _, p := range tierPatterns {
		if p.re.MatchString(cleaned) {
			if p.tier < tier {
				tier = p.tier
			}
			cleaned = p.re.ReplaceAllString(cleaned, " ")
		}
	}
	cleaned = strings.TrimSpace(whitespaceRun.ReplaceAllString(cleaned, " "))
	return tier, cleaned
}

// channelIDAttrs are the playlist attributes that carry an explicit channel
// identifier, in lookup order.
var channelIDAttrs = []string{"tvg-id", "channel-id"}

// Resolve derives the canonical merge key, quality tier, and cleaned display
// name for a record. An explicit channel identifier is authoritative and is
// never overridden by name similarity; records without one merge by
// case-normalized cleaned name so multi-quality entries still collapse.
// An empty cleaned name is its own canonical key, never dropped.
func Resolve(rec RawRecord) (key string, tier QualityTier, cleaned string) {
	tier, cleaned = DetectQuality(rec.Name)
	for _, attr := range channelIDAttrs {
		if id := strings.TrimSpace(rec.Attr(attr)); id != "" {
			return strings.ToLower(id), tier, cleaned
		}
	}
	return strings.ToLower(cleaned), tier, cleaned
}

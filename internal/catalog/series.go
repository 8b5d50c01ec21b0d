package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Trailing SxxEyy marker, optionally followed by an episode title.
var seriesMarker = regexp.MustCompile(`(?i)\bS(\d{1,2})\s*E(\d{1,3})\b`)

// Year suffix in "Title (2020)" form.
var yearSuffix = regexp.MustCompile(`\s*\((19|20)\d{2}\)\s*$`)

// SplitSeriesMarker detects a season/episode marker in an episode name and
// returns the series title with the marker and everything after it stripped.
// ok is false when no marker is present.
func SplitSeriesMarker(name string) (title string, season, episode int, ok bool) {
	loc := seriesMarker.FindStringSubmatchIndex(name)
	if loc == nil {
		return "", 0, 0, false
	}
	season, _ = strconv.Atoi(name[loc[2]:loc[3]])
	episode, _ = strconv.Atoi(name[loc[4]:loc[5]])
	title = strings.TrimSpace(strings.Trim(name[:loc[0]], " -–"))
	if title == "" {
		title = strings.TrimSpace(name)
	}
	return title, season, episode, true
}

// TitleYear splits "Title (2020)" into title and year. Year is 0 when the
// suffix is absent or out of the 1900-2100 range.
func TitleYear(name string) (string, int) {
	name = strings.TrimSpace(name)
	loc := yearSuffix.FindStringIndex(name)
	if loc == nil {
		return name, 0
	}
	inner := strings.Trim(name[loc[0]:loc[1]], " ()")
	year, err := strconv.Atoi(inner)
	if err != nil || year < 1900 || year > 2100 {
		return name, 0
	}
	return strings.TrimSpace(name[:loc[0]]), year
}

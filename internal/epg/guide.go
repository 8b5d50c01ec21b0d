// Package epg parses XMLTV programme feeds into a per-channel time-ordered
// guide and answers now/upcoming queries. The guide is an enrichment: a bad
// feed degrades to an empty guide, never to a failed catalog build.
package epg

import (
	"time"
)

// Programme is one scheduled broadcast. Start/Stop are UTC.
type Programme struct {
	Channel string    `json:"channel"`
	Start   time.Time `json:"start"`
	Stop    time.Time `json:"stop"`
	Title   string    `json:"title"`
	Desc    string    `json:"desc,omitempty"`
}

// Guide maps a channel key to its programmes, ascending by start time.
type Guide map[string][]Programme

// Current returns the programme airing on the channel at now, i.e. the first
// entry with start <= now <= stop. ok is false for unknown channels or gaps.
func (g Guide) Current(channelKey string, now time.Time) (Programme, bool) {
	for _, p := range g[channelKey] {
		if !p.Start.After(now) && !p.Stop.Before(now) {
			return p, true
		}
		if p.Start.After(now) {
			break
		}
	}
	return Programme{}, false
}

// Upcoming returns up to limit programmes with start strictly after now,
// ascending by start. limit <= 0 means no truncation.
func (g Guide) Upcoming(channelKey string, now time.Time, limit int) []Programme {
	list := g[channelKey]
	i := 0
	for i < len(list) && !list[i].Start.After(now) {
		i++
	}
	out := list[i:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	// Copy so callers can't alias the snapshot-owned slice.
	res := make([]Programme, len(out))
	copy(res, out)
	return res
}

// maxOffsetHours bounds the configured naive-timestamp correction. A
// reasonable timezone correction never exceeds two days; values outside the
// range indicate a misconfiguration and are nulled out rather than applied.
const maxOffsetHours = 48

// ClampOffset returns offset limited to [-48, 48] hours inclusive; anything
// outside that range becomes 0. Fractional hours (e.g. 2.5 for +02:30) pass
// through unchanged.
func ClampOffset(hours float64) float64 {
	if hours > maxOffsetHours || hours < -maxOffsetHours {
		return 0
	}
	return hours
}

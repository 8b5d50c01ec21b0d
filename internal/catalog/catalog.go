// Package catalog defines the normalized IPTV entity model: channels with
// ranked quality variants, movies, series, and the immutable snapshot that
// the cache publishes to the serving layer.
package catalog

import (
	"hash/fnv"
	"strconv"
	"time"

	"github.com/iptvbridge/iptv-bridge/internal/epg"
)

// QualityTier ranks a stream's resolution tier. Lower is better, so a
// variant list sorted ascending by tier is sorted best-first.
type QualityTier int

const (
	Tier4K  QualityTier = 0
	TierFHD QualityTier = 1
	TierHD  QualityTier = 2
	TierSD  QualityTier = 3 // default for unrecognized tags
)

func (t QualityTier) String() string {
	switch t {
	case Tier4K:
		return "4K"
	case TierFHD:
		return "FHD"
	case TierHD:
		return "HD"
	default:
		return "SD"
	}
}

// RecordKind classifies a raw record before merging. The parser decides the
// kind; the merger routes on it.
type RecordKind int

const (
	RecordLive RecordKind = iota
	RecordMovie
	RecordEpisode
)

// SourceKind identifies which upstream flavor produced a record.
type SourceKind string

const (
	SourcePlaylist SourceKind = "playlist"
	SourceXtream   SourceKind = "xtream"
)

// RawRecord is one parsed upstream entry. Ephemeral: produced and consumed
// within a single ingestion pass, never stored in a snapshot.
type RawRecord struct {
	Name     string
	URL      string
	Duration int // seconds; -1 for live streams
	Attrs    map[string]string
	Kind     RecordKind
	Source   SourceKind
}

// Attr returns the named attribute or "".
func (r RawRecord) Attr(key string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[key]
}

// QualityVariant is one playable rendition of a channel. Owned exclusively
// by its parent Channel.
type QualityVariant struct {
	Tier  QualityTier `json:"tier"`
	URL   string      `json:"url"`
	Label string      `json:"label"`
}

// Channel is a merged live channel. Variants is non-empty and sorted
// best-first; Variants[0].URL is the default playable URL.
type Channel struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Logo     string           `json:"logo,omitempty"`
	Category string           `json:"category,omitempty"`
	EPGKey   string           `json:"epg_key,omitempty"`
	Variants []QualityVariant `json:"variants"`
}

// DefaultURL returns the best variant's URL, or "" for a malformed channel.
func (c Channel) DefaultURL() string {
	if len(c.Variants) == 0 {
		return ""
	}
	return c.Variants[0].URL
}

// Episode is one series episode, keyed by season+episode number.
type Episode struct {
	ID      string `json:"id"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
}

// CatalogItem is a movie or series. Movies carry URL; series carry Episodes.
type CatalogItem struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	URL      string    `json:"url,omitempty"`
	Poster   string    `json:"poster,omitempty"`
	Plot     string    `json:"plot,omitempty"`
	Category string    `json:"category,omitempty"`
	Year     int       `json:"year,omitempty"`
	Episodes []Episode `json:"episodes,omitempty"`
}

// Snapshot is one complete catalog build. Immutable once published: a
// rebuild produces a brand-new Snapshot, readers never observe a partially
// merged one.
type Snapshot struct {
	Channels []Channel     `json:"channels"`
	Movies   []CatalogItem `json:"movies"`
	Series   []CatalogItem `json:"series"`
	EPG      epg.Guide     `json:"epg,omitempty"`
	BuiltAt  time.Time     `json:"built_at"`
}

// StreamRef is one playable URL with a human label, ranked best-first when
// part of a list.
type StreamRef struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// ResolveStream looks up a channel, movie, or series episode by id and
// returns its quality-ranked playable URLs. Unmerged items yield a single
// element. Returns nil when the id is unknown.
func (s *Snapshot) ResolveStream(id string) []StreamRef {
	for i := range s.Channels {
		if s.Channels[i].ID != id {
			continue
		}
		refs := make([]StreamRef, 0, len(s.Channels[i].Variants))
		for _, v := range s.Channels[i].Variants {
			refs = append(refs, StreamRef{URL: v.URL, Label: v.Tier.String()})
		}
		return refs
	}
	for i := range s.Movies {
		if s.Movies[i].ID == id {
			return []StreamRef{{URL: s.Movies[i].URL, Label: s.Movies[i].Name}}
		}
	}
	for i := range s.Series {
		for _, ep := range s.Series[i].Episodes {
			if ep.ID == id {
				return []StreamRef{{URL: ep.URL, Label: ep.Title}}
			}
		}
	}
	return nil
}

// stableID hashes a canonical merge key into an entity id. Hashing the key
// rather than the display name keeps identity stable across name edits.
func stableID(prefix, key string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return prefix + "_" + strconv.FormatUint(h.Sum64(), 16)
}

package catalog

import (
	"sort"
	"strings"
)

// Merger folds raw records into merged channels plus pass-through movies and
// series. Not safe for concurrent use; each ingestion run owns one Merger.
type Merger struct {
	channelOrder []string
	channels     map[string]*Channel

	movies []CatalogItem

	seriesOrder []string
	series      map[string]*CatalogItem
}

func NewMerger() *Merger {
	return &Merger{
		channels: make(map[string]*Channel),
		series:   make(map[string]*CatalogItem),
	}
}

// Add routes one record by kind.
func (m *Merger) Add(rec RawRecord) {
	switch rec.Kind {
	case RecordMovie:
		m.addMovie(rec)
	case RecordEpisode:
		m.addEpisode(rec)
	default:
		m.addChannel(rec)
	}
}

// addChannel merges a live record under its canonical key. The first record
// under a new key establishes the display metadata; later records only
// contribute a quality variant, so identity-defining metadata never flaps
// between variant submissions.
func (m *Merger) addChannel(rec RawRecord) {
	key, tier, cleaned := Resolve(rec)
	ch, ok := m.channels[key]
	if !ok {
		ch = &Channel{
			ID:       stableID("ch", key),
			Name:     cleaned,
			Logo:     rec.Attr("tvg-logo"),
			Category: rec.Attr("group-title"),
			EPGKey:   strings.TrimSpace(rec.Attr("tvg-id")),
		}
		m.channels[key] = ch
		m.channelOrder = append(m.channelOrder, key)
	}
	ch.Variants = append(ch.Variants, QualityVariant{
		Tier:  tier,
		URL:   rec.URL,
		Label: strings.TrimSpace(rec.Name),
	})
	// Stable: equal-tier variants keep insertion order, which makes a re-run
	// over the same input multiset produce identical orderings.
	sort.SliceStable(ch.Variants, func(i, j int) bool {
		return ch.Variants[i].Tier < ch.Variants[j].Tier
	})
}

func (m *Merger) addMovie(rec RawRecord) {
	title, year := TitleYear(rec.Name)
	m.movies = append(m.movies, CatalogItem{
		ID:       stableID("mov", rec.URL),
		Name:     title,
		URL:      rec.URL,
		Poster:   rec.Attr("tvg-logo"),
		Category: rec.Attr("group-title"),
		Year:     year,
	})
}

// addEpisode folds a playlist-sourced episode into its series, derived by
// stripping the trailing season/episode marker from the title. First-seen
// title wins as the series' representative metadata.
func (m *Merger) addEpisode(rec RawRecord) {
	title, season, episode, ok := SplitSeriesMarker(rec.Name)
	if !ok {
		// No marker: treat as a one-off movie rather than dropping it.
		m.addMovie(rec)
		return
	}
	key := strings.ToLower(title)
	s, exists := m.series[key]
	if !exists {
		s = &CatalogItem{
			ID:       stableID("ser", key),
			Name:     title,
			Poster:   rec.Attr("tvg-logo"),
			Category: rec.Attr("group-title"),
		}
		m.series[key] = s
		m.seriesOrder = append(m.seriesOrder, key)
	}
	s.Episodes = append(s.Episodes, Episode{
		ID:      stableID("ep", rec.URL),
		Season:  season,
		Episode: episode,
		Title:   strings.TrimSpace(rec.Name),
		URL:     rec.URL,
	})
	sort.SliceStable(s.Episodes, func(i, j int) bool {
		if s.Episodes[i].Season != s.Episodes[j].Season {
			return s.Episodes[i].Season < s.Episodes[j].Season
		}
		return s.Episodes[i].Episode < s.Episodes[j].Episode
	})
}

// AddSeriesItem appends a prebuilt series (provider API sources deliver
// series with their episode index already assembled).
func (m *Merger) AddSeriesItem(item CatalogItem) {
	key := strings.ToLower(item.Name)
	if _, exists := m.series[key]; exists {
		return
	}
	m.series[key] = &item
	m.seriesOrder = append(m.seriesOrder, key)
}

// Channels returns merged channels in first-seen order.
func (m *Merger) Channels() []Channel {
	out := make([]Channel, 0, len(m.channelOrder))
	for _, key := range m.channelOrder {
		out = append(out, *m.channels[key])
	}
	return out
}

// Movies returns pass-through movie items in input order.
func (m *Merger) Movies() []CatalogItem {
	return m.movies
}

// Series returns series in first-seen order.
func (m *Merger) Series() []CatalogItem {
	out := make([]CatalogItem, 0, len(m.seriesOrder))
	for _, key := range m.seriesOrder {
		out = append(out, *m.series[key])
	}
	return out
}

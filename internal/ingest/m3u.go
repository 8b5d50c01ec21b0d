package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
	"github.com/iptvbridge/iptv-bridge/internal/httpclient"
)

const maxLineSize = 1 << 20 // 1 MiB per playlist line

// extinfAttr extracts key="value" (or bare key=value) pairs from a metadata
// line. Unknown keys are preserved verbatim; a duplicate key keeps the last
// occurrence because the map write simply overwrites.
var extinfAttr = regexp.MustCompile(`([\w-]+)=(?:"([^"]*)"|([^\s,]+))`)

// ParsePlaylist reads a line-oriented playlist and produces raw records.
// Entries are pairs of a #EXTINF metadata line followed by a non-comment
// address line; a metadata line with no following address is discarded as
// malformed rather than failing the parse.
func ParsePlaylist(r io.Reader) ([]catalog.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	var records []catalog.RawRecord
	var pending string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			pending = line
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pending != "" {
			records = append(records, recordFromEXTINF(pending, line))
			pending = ""
		}
	}
	return records, sc.Err()
}

// recordFromEXTINF turns one metadata+address pair into a RawRecord and
// classifies it as live, movie, or series episode.
func recordFromEXTINF(extinf, address string) catalog.RawRecord {
	rec := catalog.RawRecord{
		URL:      address,
		Duration: -1,
		Attrs:    make(map[string]string),
		Source:   catalog.SourcePlaylist,
	}

	meta := strings.TrimPrefix(extinf, "#EXTINF:")
	durTok := meta
	if i := strings.IndexAny(meta, " ,"); i >= 0 {
		durTok = meta[:i]
	}
	if d, err := strconv.Atoi(strings.TrimSpace(durTok)); err == nil {
		rec.Duration = d
	}
	if i := lastUnquotedComma(meta); i >= 0 {
		rec.Name = strings.TrimSpace(meta[i+1:])
		meta = meta[:i]
	}
	for _, m := range extinfAttr.FindAllStringSubmatch(meta, -1) {
		val := m[2]
		if val == "" {
			val = m[3]
		}
		rec.Attrs[m[1]] = val
	}
	if rec.Name == "" {
		rec.Name = rec.Attrs["tvg-name"]
	}

	rec.Kind = classify(rec)
	return rec
}

// lastUnquotedComma finds the comma separating attributes from the display
// name. Attribute values may themselves contain commas, so quoted regions
// are skipped.
func lastUnquotedComma(s string) int {
	inQuote := false
	last := -1
	for i, c := range s {
		switch c {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				last = i
			}
		}
	}
	return last
}

// classify decides the record kind from playlist heuristics: a trailing
// SxxEyy marker means a series episode, a year suffix or a movie/VOD group
// means a movie, anything else is a live channel.
func classify(rec catalog.RawRecord) catalog.RecordKind {
	if _, _, _, ok := catalog.SplitSeriesMarker(rec.Name); ok {
		return catalog.RecordEpisode
	}
	group := strings.ToLower(rec.Attr("group-title"))
	if strings.Contains(group, "movie") || strings.Contains(group, "vod") {
		return catalog.RecordMovie
	}
	if _, year := catalog.TitleYear(rec.Name); year > 0 {
		return catalog.RecordMovie
	}
	return catalog.RecordLive
}

// PlaylistSource ingests a raw M3U feed, with an optional XMLTV guide URL.
type PlaylistSource struct {
	M3UURL string
	EPGURL string
	Client *http.Client
}

func (s *PlaylistSource) Kind() catalog.SourceKind { return catalog.SourcePlaylist }

// FetchCore downloads and parses the playlist. The whole catalog rides on
// this one feed, so any failure is fatal to the run.
func (s *PlaylistSource) FetchCore(ctx context.Context) (*CoreFeeds, error) {
	body, err := httpclient.Get(ctx, s.Client, s.M3UURL)
	if err != nil {
		return nil, &SourceError{Feed: "playlist", Err: err}
	}
	records, err := ParsePlaylist(strings.NewReader(string(body)))
	if err != nil {
		return nil, &SourceError{Feed: "playlist", Err: err}
	}
	feeds := &CoreFeeds{}
	for _, rec := range records {
		switch rec.Kind {
		case catalog.RecordMovie:
			feeds.Movies = append(feeds.Movies, rec)
		case catalog.RecordEpisode:
			feeds.Episodes = append(feeds.Episodes, rec)
		default:
			feeds.Live = append(feeds.Live, rec)
		}
	}
	return feeds, nil
}

// FetchAux is a no-op: playlists carry their category names inline.
func (s *PlaylistSource) FetchAux(ctx context.Context) (*AuxFeeds, error) {
	return &AuxFeeds{}, nil
}

// FetchEPG streams the configured XMLTV feed.
func (s *PlaylistSource) FetchEPG(ctx context.Context) (io.ReadCloser, error) {
	if s.EPGURL == "" {
		return nil, &AuxFeedError{Feed: "epg", Err: errNoGuide}
	}
	client := s.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.EPGURL, nil)
	if err != nil {
		return nil, &AuxFeedError{Feed: "epg", Err: err}
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, &AuxFeedError{Feed: "epg", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &AuxFeedError{Feed: "epg", Err: fmt.Errorf("status %s", resp.Status)}
	}
	return resp.Body, nil
}

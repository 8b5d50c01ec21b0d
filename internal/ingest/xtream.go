package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
	"github.com/iptvbridge/iptv-bridge/internal/httpclient"
)

// XtreamSource ingests an Xtream-style player_api provider.
type XtreamSource struct {
	BaseURL   string // e.g. http://provider:8080, no trailing slash
	User      string
	Pass      string
	StreamExt string // "m3u8" or "ts"
	LiveOnly  bool
	Client    *http.Client
	Log       zerolog.Logger

	// Paged aux requests (per-series detail calls) are rate limited so a
	// large series catalog doesn't trip provider throttling.
	limiter *rate.Limiter
}

// NewXtreamSource applies defaults.
func NewXtreamSource(baseURL, user, pass, streamExt string, liveOnly bool, logger zerolog.Logger) *XtreamSource {
	if streamExt == "" {
		streamExt = "m3u8"
	}
	return &XtreamSource{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		User:      user,
		Pass:      pass,
		StreamExt: streamExt,
		LiveOnly:  liveOnly,
		Log:       logger,
		limiter:   rate.NewLimiter(rate.Limit(5), 1), // 5 req/s for paged calls
	}
}

func (s *XtreamSource) Kind() catalog.SourceKind { return catalog.SourceXtream }

func (s *XtreamSource) apiBase() string {
	return s.BaseURL + "/player_api.php?username=" + url.QueryEscape(s.User) +
		"&password=" + url.QueryEscape(s.Pass)
}

// apiGet fetches one API action under the per-host concurrency cap.
func (s *XtreamSource) apiGet(ctx context.Context, action string, params ...string) ([]byte, error) {
	u := s.apiBase() + "&action=" + action
	for i := 0; i+1 < len(params); i += 2 {
		u += "&" + params[i] + "=" + url.QueryEscape(params[i+1])
	}
	release := httpclient.Hosts.Acquire(s.BaseURL)
	defer release()
	return httpclient.Get(ctx, s.Client, u)
}

// idStr tolerates providers sending numeric ids as either JSON numbers or
// strings.
func idStr(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case string:
		return strings.TrimSpace(x)
	}
	return ""
}

type xtreamStream struct {
	StreamID     any    `json:"stream_id"`
	Name         string `json:"name"`
	EpgChannelID any    `json:"epg_channel_id"`
	StreamIcon   string `json:"stream_icon"`
	CategoryID   any    `json:"category_id"`
	ContainerExt string `json:"container_extension"`
	ReleaseDate  string `json:"releasedate"`
	Plot         string `json:"plot"`
}

// FetchCore retrieves live and (unless LiveOnly) VOD listings. Each provider
// object maps to one RawRecord; category ids travel in the attribute map and
// are resolved by the orchestrator against the aux category feed.
func (s *XtreamSource) FetchCore(ctx context.Context) (*CoreFeeds, error) {
	feeds := &CoreFeeds{}

	body, err := s.apiGet(ctx, "get_live_streams")
	if err != nil {
		return nil, &SourceError{Feed: "live", Err: err}
	}
	var live []xtreamStream
	if err := json.Unmarshal(body, &live); err != nil {
		return nil, &SourceError{Feed: "live", Err: err}
	}
	for _, st := range live {
		sid := idStr(st.StreamID)
		if sid == "" {
			parseDrops.Inc()
			continue
		}
		feeds.Live = append(feeds.Live, catalog.RawRecord{
			Name:     strings.TrimSpace(st.Name),
			URL:      s.streamURL("live", sid, s.StreamExt),
			Duration: -1,
			Kind:     catalog.RecordLive,
			Source:   catalog.SourceXtream,
			Attrs: map[string]string{
				"tvg-id":      idStr(st.EpgChannelID),
				"tvg-logo":    st.StreamIcon,
				"category-id": idStr(st.CategoryID),
			},
		})
	}

	if s.LiveOnly {
		return feeds, nil
	}

	body, err = s.apiGet(ctx, "get_vod_streams")
	if err != nil {
		return nil, &SourceError{Feed: "vod", Err: err}
	}
	var vod []xtreamStream
	if err := json.Unmarshal(body, &vod); err != nil {
		return nil, &SourceError{Feed: "vod", Err: err}
	}
	for _, st := range vod {
		sid := idStr(st.StreamID)
		if sid == "" {
			parseDrops.Inc()
			continue
		}
		ext := st.ContainerExt
		if ext == "" || len(ext) > 5 {
			ext = s.StreamExt
		}
		name := strings.TrimSpace(st.Name)
		if year := releaseYear(st.ReleaseDate); year > 0 && !strings.Contains(name, "(") {
			name = fmt.Sprintf("%s (%d)", name, year)
		}
		feeds.Movies = append(feeds.Movies, catalog.RawRecord{
			Name:   name,
			URL:    s.streamURL("vod", sid, ext),
			Kind:   catalog.RecordMovie,
			Source: catalog.SourceXtream,
			Attrs: map[string]string{
				"tvg-logo":    st.StreamIcon,
				"category-id": idStr(st.CategoryID),
				"plot":        st.Plot,
			},
		})
	}
	return feeds, nil
}

func (s *XtreamSource) streamURL(section, id, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", s.BaseURL, section,
		url.PathEscape(s.User), url.PathEscape(s.Pass), url.PathEscape(id), url.PathEscape(ext))
}

func releaseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1900 || year > 2100 {
		return 0
	}
	return year
}

// FetchAux retrieves category name maps and the series index. Every failure
// here is wrapped as AuxFeedError so the orchestrator can absorb it.
func (s *XtreamSource) FetchAux(ctx context.Context) (*AuxFeeds, error) {
	aux := &AuxFeeds{Categories: make(map[string]string)}

	for _, action := range []string{"get_live_categories", "get_vod_categories"} {
		body, err := s.apiGet(ctx, action)
		if err != nil {
			return aux, &AuxFeedError{Feed: action, Err: err}
		}
		var cats []struct {
			CategoryID   any    `json:"category_id"`
			CategoryName string `json:"category_name"`
		}
		if err := json.Unmarshal(body, &cats); err != nil {
			return aux, &AuxFeedError{Feed: action, Err: err}
		}
		for _, c := range cats {
			if id := idStr(c.CategoryID); id != "" && c.CategoryName != "" {
				aux.Categories[id] = c.CategoryName
			}
		}
	}

	if s.LiveOnly {
		return aux, nil
	}
	series, err := s.fetchSeries(ctx)
	if err != nil {
		return aux, err
	}
	aux.Series = series
	return aux, nil
}

// fetchSeries walks get_series then get_series_info per show. Individual
// show failures are skipped; the whole walk fails only when the index
// itself cannot be read.
func (s *XtreamSource) fetchSeries(ctx context.Context) ([]catalog.CatalogItem, error) {
	body, err := s.apiGet(ctx, "get_series")
	if err != nil {
		return nil, &AuxFeedError{Feed: "series", Err: err}
	}
	var shows []struct {
		SeriesID any    `json:"series_id"`
		Name     string `json:"name"`
		Cover    string `json:"cover"`
		Plot     string `json:"plot"`
	}
	if err := json.Unmarshal(body, &shows); err != nil {
		return nil, &AuxFeedError{Feed: "series", Err: err}
	}

	var out []catalog.CatalogItem
	for _, show := range shows {
		sid := idStr(show.SeriesID)
		if sid == "" {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return out, &AuxFeedError{Feed: "series", Err: err}
		}
		infoBody, err := s.apiGet(ctx, "get_series_info", "series_id", sid)
		if err != nil {
			s.Log.Warn().Err(err).Str("series_id", sid).Msg("series detail fetch failed; skipping show")
			continue
		}
		item, ok := s.seriesItem(sid, show.Name, show.Cover, show.Plot, infoBody)
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// seriesItem converts one get_series_info payload into a CatalogItem.
func (s *XtreamSource) seriesItem(sid, name, cover, plot string, infoBody []byte) (catalog.CatalogItem, bool) {
	var info struct {
		Episodes map[string][]struct {
			ID           any    `json:"id"`
			EpisodeNum   any    `json:"episode_num"`
			Title        string `json:"title"`
			Season       any    `json:"season"`
			ContainerExt string `json:"container_extension"`
		} `json:"episodes"`
	}
	if err := json.Unmarshal(infoBody, &info); err != nil || len(info.Episodes) == 0 {
		return catalog.CatalogItem{}, false
	}
	item := catalog.CatalogItem{
		ID:     "ser_" + sid,
		Name:   strings.TrimSpace(name),
		Poster: cover,
		Plot:   plot,
	}
	for seasonKey, eps := range info.Episodes {
		seasonNum, _ := strconv.Atoi(seasonKey)
		if seasonNum < 1 {
			seasonNum = 1
		}
		for _, ep := range eps {
			eid := idStr(ep.ID)
			if eid == "" {
				continue
			}
			epNum, _ := strconv.Atoi(idStr(ep.EpisodeNum))
			seNum, _ := strconv.Atoi(idStr(ep.Season))
			if seNum < 1 {
				seNum = seasonNum
			}
			ext := ep.ContainerExt
			if ext == "" || len(ext) > 5 {
				ext = s.StreamExt
			}
			item.Episodes = append(item.Episodes, catalog.Episode{
				ID:      "ep_" + eid,
				Season:  seNum,
				Episode: epNum,
				Title:   strings.TrimSpace(ep.Title),
				URL:     s.streamURL("series", eid, ext),
			})
		}
	}
	sort.SliceStable(item.Episodes, func(i, j int) bool {
		if item.Episodes[i].Season != item.Episodes[j].Season {
			return item.Episodes[i].Season < item.Episodes[j].Season
		}
		return item.Episodes[i].Episode < item.Episodes[j].Episode
	})
	return item, len(item.Episodes) > 0
}

// FetchEPG streams the provider's XMLTV export.
func (s *XtreamSource) FetchEPG(ctx context.Context) (io.ReadCloser, error) {
	u := s.BaseURL + "/xmltv.php?username=" + url.QueryEscape(s.User) +
		"&password=" + url.QueryEscape(s.Pass)
	client := s.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
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

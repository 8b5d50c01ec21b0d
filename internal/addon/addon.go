// Package addon is the thin serving boundary: it maps the catalog core onto
// a Stremio-style JSON surface (manifest/catalog/meta/stream) plus health
// and metrics endpoints. No business logic lives here.
package addon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
	"github.com/iptvbridge/iptv-bridge/internal/health"
	"github.com/iptvbridge/iptv-bridge/internal/snapcache"
)

// Handler serves the addon API over the snapshot cache.
type Handler struct {
	Cache       *snapcache.Cache
	Fingerprint string
	Build       snapcache.Builder
	HealthURL   string // provider URL probed by /healthz
	Log         zerolog.Logger
}

// Router assembles the HTTP routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/manifest.json", h.manifest)
	r.Get("/catalog/{type}.json", h.catalog)
	r.Get("/meta/{type}/{id}.json", h.meta)
	r.Get("/stream/{type}/{id}.json", h.stream)
	r.Post("/refresh", h.refresh)
	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *Handler) snapshot(ctx context.Context, force bool) (*catalog.Snapshot, error) {
	return h.Cache.GetOrBuild(ctx, h.Fingerprint, force, h.Build)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"id":          "org.iptvbridge.catalog",
		"version":     "1.0.0",
		"name":        "IPTV Bridge",
		"description": "Normalized IPTV catalog with merged quality variants and EPG",
		"resources":   []string{"catalog", "meta", "stream"},
		"types":       []string{"tv", "movie", "series"},
		"catalogs": []map[string]string{
			{"type": "tv", "id": "iptvbridge.tv"},
			{"type": "movie", "id": "iptvbridge.movies"},
			{"type": "series", "id": "iptvbridge.series"},
		},
	})
}

type meta struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Poster string `json:"poster,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context(), false)
	if err != nil {
		h.Log.Error().Err(err).Msg("catalog unavailable")
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	var metas []meta
	switch chi.URLParam(r, "type") {
	case "tv":
		for _, ch := range snap.Channels {
			metas = append(metas, meta{ID: ch.ID, Type: "tv", Name: ch.Name, Poster: ch.Logo, Genre: ch.Category})
		}
	case "movie":
		for _, m := range snap.Movies {
			metas = append(metas, meta{ID: m.ID, Type: "movie", Name: m.Name, Poster: m.Poster, Genre: m.Category})
		}
	case "series":
		for _, s := range snap.Series {
			metas = append(metas, meta{ID: s.ID, Type: "series", Name: s.Name, Poster: s.Poster, Genre: s.Category})
		}
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{"metas": metas})
}

func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context(), false)
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	id := chi.URLParam(r, "id")
	kind := chi.URLParam(r, "type")

	if kind == "tv" {
		for _, ch := range snap.Channels {
			if ch.ID != id {
				continue
			}
			out := map[string]any{
				"id": ch.ID, "type": "tv", "name": ch.Name,
				"poster": ch.Logo, "genre": ch.Category,
			}
			now := time.Now().UTC()
			if p, ok := snap.EPG.Current(ch.EPGKey, now); ok {
				out["description"] = "Now: " + p.Title
			}
			if next := snap.EPG.Upcoming(ch.EPGKey, now, 1); len(next) > 0 {
				out["releaseInfo"] = "Next: " + next[0].Title
			}
			writeJSON(w, map[string]any{"meta": out})
			return
		}
	}
	if kind == "movie" {
		for _, m := range snap.Movies {
			if m.ID == id {
				writeJSON(w, map[string]any{"meta": m})
				return
			}
		}
	}
	if kind == "series" {
		for _, s := range snap.Series {
			if s.ID == id {
				writeJSON(w, map[string]any{"meta": s})
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context(), false)
	if err != nil {
		http.Error(w, "catalog unavailable", http.StatusBadGateway)
		return
	}
	refs := snap.ResolveStream(chi.URLParam(r, "id"))
	if refs == nil {
		http.NotFound(w, r)
		return
	}
	type stream struct {
		URL   string `json:"url"`
		Title string `json:"title,omitempty"`
	}
	streams := make([]stream, 0, len(refs))
	for _, ref := range refs {
		streams = append(streams, stream{URL: ref.URL, Title: ref.Label})
	}
	writeJSON(w, map[string]any{"streams": streams})
}

// refresh forces a rebuild, subject to the cache's minor-refresh guard.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context(), true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{
		"built_at": snap.BuiltAt,
		"channels": len(snap.Channels),
		"movies":   len(snap.Movies),
		"series":   len(snap.Series),
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := health.CheckProvider(ctx, h.HealthURL); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

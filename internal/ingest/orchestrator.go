package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
	"github.com/iptvbridge/iptv-bridge/internal/epg"
)

// Orchestrator drives one source through a full ingestion run: concurrent
// feed fetches, record parsing, identity resolution, and channel merging,
// producing a complete snapshot for the cache to publish.
type Orchestrator struct {
	Source         Source
	EPGOffsetHours float64
	CoreTimeout    time.Duration // exceeded => run fails, no snapshot published
	AuxTimeout     time.Duration // independent and shorter; expiry is absorbed
	Log            zerolog.Logger
}

const (
	defaultCoreTimeout = 90 * time.Second
	defaultAuxTimeout  = 30 * time.Second
)

// Run executes one ingestion pass. Core and auxiliary feeds are fetched in
// parallel and joined before any merging; auxiliary failures degrade to raw
// category ids, no series, or an empty guide, while a core failure aborts
// with a *SourceError and leaves any previous snapshot untouched.
func (o *Orchestrator) Run(ctx context.Context) (*catalog.Snapshot, error) {
	runsTotal.Inc()
	coreTimeout := o.CoreTimeout
	if coreTimeout <= 0 {
		coreTimeout = defaultCoreTimeout
	}
	auxTimeout := o.AuxTimeout
	if auxTimeout <= 0 {
		auxTimeout = defaultAuxTimeout
	}

	var (
		core  *CoreFeeds
		aux   = &AuxFeeds{}
		guide = make(epg.Guide)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		coreCtx, cancel := context.WithTimeout(gctx, coreTimeout)
		defer cancel()
		feeds, err := o.Source.FetchCore(coreCtx)
		if err != nil {
			return err
		}
		core = feeds
		return nil
	})
	g.Go(func() error {
		auxCtx, cancel := context.WithTimeout(gctx, auxTimeout)
		defer cancel()
		feeds, err := o.Source.FetchAux(auxCtx)
		if feeds != nil {
			aux = feeds
		}
		if err != nil {
			auxFailures.Inc()
			o.Log.Warn().Err(err).Msg("auxiliary feeds degraded")
		}
		return nil
	})
	g.Go(func() error {
		epgCtx, cancel := context.WithTimeout(gctx, auxTimeout)
		defer cancel()
		body, err := o.Source.FetchEPG(epgCtx)
		if err != nil {
			auxFailures.Inc()
			o.Log.Warn().Err(err).Msg("epg feed unavailable")
			return nil
		}
		defer body.Close()
		parsed, err := epg.ParseXMLTV(body, o.EPGOffsetHours)
		if err != nil {
			auxFailures.Inc()
			o.Log.Warn().Err(err).Msg("epg feed unparseable; serving empty guide")
			return nil
		}
		guide = parsed
		return nil
	})
	if err := g.Wait(); err != nil {
		runFailures.Inc()
		if _, ok := err.(*SourceError); ok {
			return nil, err
		}
		return nil, &SourceError{Feed: "core", Err: err}
	}

	merger := catalog.NewMerger()
	for _, rec := range core.Live {
		resolveCategory(&rec, aux.Categories)
		merger.Add(rec)
	}
	for _, rec := range core.Movies {
		resolveCategory(&rec, aux.Categories)
		merger.Add(rec)
	}
	for _, rec := range core.Episodes {
		merger.Add(rec)
	}
	for _, item := range aux.Series {
		merger.AddSeriesItem(item)
	}

	snap := &catalog.Snapshot{
		Channels: merger.Channels(),
		Movies:   merger.Movies(),
		Series:   merger.Series(),
		EPG:      guide,
		BuiltAt:  time.Now().UTC(),
	}
	o.Log.Info().
		Int("channels", len(snap.Channels)).
		Int("movies", len(snap.Movies)).
		Int("series", len(snap.Series)).
		Int("epg_channels", len(guide)).
		Msg("snapshot assembled")
	return snap, nil
}

// resolveCategory fills group-title from the provider category map, falling
// back to the raw id string when the lookup misses. A playlist record that
// already carries a group name is left alone.
func resolveCategory(rec *catalog.RawRecord, categories map[string]string) {
	if rec.Attr("group-title") != "" {
		return
	}
	id := rec.Attr("category-id")
	if id == "" {
		return
	}
	if name, ok := categories[id]; ok {
		rec.Attrs["group-title"] = name
		return
	}
	rec.Attrs["group-title"] = id
}

// Package ingest drives one or more upstream sources through the record
// parser and channel merger, assembling complete catalog snapshots while
// tolerating partial failure of auxiliary feeds.
package ingest

import (
	"context"
	"io"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
)

// CoreFeeds are the listings a run cannot proceed without.
type CoreFeeds struct {
	Live   []catalog.RawRecord
	Movies []catalog.RawRecord
	// Episodes is populated by playlist sources, whose series arrive as
	// flat episode records and are folded by the merger.
	Episodes []catalog.RawRecord
}

// AuxFeeds enrich the catalog. Empty values are always acceptable.
type AuxFeeds struct {
	// Categories maps provider category ids to display names. Records whose
	// group attribute is an unresolved id fall back to the raw id string.
	Categories map[string]string
	// Series are prebuilt series items from providers that expose an
	// episode index (Xtream get_series_info).
	Series []catalog.CatalogItem
}

// Source is one upstream provider. FetchCore failures abort the run;
// FetchAux and FetchEPG are best-effort.
type Source interface {
	// Kind labels the source in logs and diagnostics.
	Kind() catalog.SourceKind
	// FetchCore retrieves and parses the required live/VOD listings.
	FetchCore(ctx context.Context) (*CoreFeeds, error)
	// FetchAux retrieves category maps and series details.
	FetchAux(ctx context.Context) (*AuxFeeds, error)
	// FetchEPG returns the raw programme guide feed, or an error when the
	// source has no guide configured.
	FetchEPG(ctx context.Context) (io.ReadCloser, error)
}

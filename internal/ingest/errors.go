package ingest

import (
	"errors"
	"fmt"
)

// errNoGuide means the source has no guide feed configured; treated as an
// ordinary absorbed auxiliary failure.
var errNoGuide = errors.New("no guide feed configured")

// SourceError marks a core feed that was unreachable or malformed. Fatal to
// the current ingestion run; a previously published snapshot keeps serving.
type SourceError struct {
	Feed string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source feed %s: %v", e.Feed, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// AuxFeedError marks a category/series/EPG feed issue. Absorbed by the
// orchestrator: it degrades richness, never availability.
type AuxFeedError struct {
	Feed string
	Err  error
}

func (e *AuxFeedError) Error() string {
	return fmt.Sprintf("auxiliary feed %s: %v", e.Feed, e.Err)
}

func (e *AuxFeedError) Unwrap() error { return e.Err }

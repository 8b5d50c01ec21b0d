package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// 50MB cap on the upstream feed; guards against a hostile or broken server.
const maxFeedSize = 50 << 20

// xmltvTimestamp is the canonical fixed-width date-time token.
const xmltvTimestamp = "20060102150405"

// ParseXMLTV decodes an XMLTV document into a Guide. offsetHours is applied
// to naive timestamps only (tokens carrying their own UTC offset convert
// with that offset); it is clamped per ClampOffset before use. Individual
// malformed programmes are skipped; a document-level error is returned for
// the caller to absorb into an empty guide.
func ParseXMLTV(r io.Reader, offsetHours float64) (Guide, error) {
	offsetHours = ClampOffset(offsetHours)
	naiveShift := time.Duration(offsetHours * float64(time.Hour))

	dec := xml.NewDecoder(io.LimitReader(r, maxFeedSize))
	dec.Strict = false
	guide := make(Guide)

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode xmltv: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "programme" {
			continue
		}
		var node struct {
			Start   string `xml:"start,attr"`
			Stop    string `xml:"stop,attr"`
			Channel string `xml:"channel,attr"`
			Title   string `xml:"title"`
			Desc    string `xml:"desc"`
		}
		if err := dec.DecodeElement(&node, &start); err != nil {
			return nil, fmt.Errorf("decode programme: %w", err)
		}
		key := strings.TrimSpace(node.Channel)
		if key == "" {
			continue
		}
		startT, err := ParseTimestamp(node.Start, naiveShift)
		if err != nil {
			continue
		}
		stopT, err := ParseTimestamp(node.Stop, naiveShift)
		if err != nil {
			continue
		}
		guide[key] = append(guide[key], Programme{
			Channel: key,
			Start:   startT,
			Stop:    stopT,
			Title:   strings.TrimSpace(node.Title),
			Desc:    strings.TrimSpace(node.Desc),
		})
	}

	for key := range guide {
		list := guide[key]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Start.Before(list[j].Start)
		})
		guide[key] = list
	}
	return guide, nil
}

// ParseTimestamp converts an XMLTV timestamp to UTC. The canonical form is
// "20060102150405" optionally followed by a signed UTC offset ("+0200").
// When an offset is present it is authoritative; a naive token is shifted by
// naiveShift (the configured hour offset) instead.
func ParseTimestamp(tok string, naiveShift time.Duration) (time.Time, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if strings.ContainsAny(tok, "+-") || strings.Contains(tok, " ") {
		t, err := time.Parse(xmltvTimestamp+" -0700", tok)
		if err != nil {
			// Some feeds omit the space before the offset.
			t, err = time.Parse(xmltvTimestamp+"-0700", tok)
			if err != nil {
				return time.Time{}, err
			}
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(xmltvTimestamp, tok)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(-naiveShift).UTC(), nil
}

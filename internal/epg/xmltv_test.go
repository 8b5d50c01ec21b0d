package epg

import (
	"strings"
	"testing"
	"time"
)

const sampleXMLTV = `<?xml version="1.0" encoding="UTF-8"?>
<tv generator-info-name="test">
  <channel id="bbc1.uk"><display-name>BBC One</display-name></channel>
  <programme start="20260101110000 +0000" stop="20260101120000 +0000" channel="bbc1.uk">
    <title>News</title>
    <desc>Headlines.</desc>
  </programme>
  <programme start="20260101100000 +0000" stop="20260101110000 +0000" channel="bbc1.uk">
    <title>Breakfast</title>
  </programme>
  <programme start="20260101120000 +0200" stop="20260101130000 +0200" channel="cnn.us">
    <title>World Report</title>
  </programme>
</tv>`

func TestParseXMLTV(t *testing.T) {
	g, err := ParseXMLTV(strings.NewReader(sampleXMLTV), 0)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	bbc := g["bbc1.uk"]
	if len(bbc) != 2 {
		t.Fatalf("bbc1.uk got %d programmes, want 2", len(bbc))
	}
	if bbc[0].Title != "Breakfast" || bbc[1].Title != "News" {
		t.Errorf("programmes not sorted by start: [%q %q]", bbc[0].Title, bbc[1].Title)
	}
	if bbc[1].Desc != "Headlines." {
		t.Errorf("Desc = %q", bbc[1].Desc)
	}

	// +0200 token converts to UTC: 12:00+02:00 is 10:00Z.
	cnn := g["cnn.us"]
	if len(cnn) != 1 {
		t.Fatalf("cnn.us got %d programmes, want 1", len(cnn))
	}
	want := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if !cnn[0].Start.Equal(want) {
		t.Errorf("Start = %v, want %v", cnn[0].Start, want)
	}
}

func TestParseXMLTV_naiveOffset(t *testing.T) {
	const doc = `<tv>
  <programme start="20260101120000" stop="20260101130000" channel="c1">
    <title>Local</title>
  </programme>
</tv>`
	// Naive tokens are local-to-the-provider; offset +2 means provider clocks
	// run two hours ahead of UTC, so 12:00 local is 10:00Z.
	g, err := ParseXMLTV(strings.NewReader(doc), 2)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	want := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := g["c1"][0].Start; !got.Equal(want) {
		t.Errorf("Start = %v, want %v", got, want)
	}
}

func TestParseXMLTV_fractionalOffset(t *testing.T) {
	const doc = `<tv>
  <programme start="20260101120000" stop="20260101130000" channel="c1">
    <title>Local</title>
  </programme>
</tv>`
	g, err := ParseXMLTV(strings.NewReader(doc), 2.5)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	want := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	if got := g["c1"][0].Start; !got.Equal(want) {
		t.Errorf("Start = %v, want %v", got, want)
	}
}

func TestParseXMLTV_outOfRangeOffsetIgnored(t *testing.T) {
	const doc = `<tv>
  <programme start="20260101120000" stop="20260101130000" channel="c1">
    <title>Local</title>
  </programme>
</tv>`
	g, err := ParseXMLTV(strings.NewReader(doc), 50)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := g["c1"][0].Start; !got.Equal(want) {
		t.Errorf("Start = %v, want offset nulled out at %v", got, want)
	}
}

func TestParseXMLTV_skipsMalformedProgrammes(t *testing.T) {
	const doc = `<tv>
  <programme start="garbage" stop="20260101130000" channel="c1"><title>Bad</title></programme>
  <programme start="20260101120000" stop="20260101130000" channel=""><title>NoChannel</title></programme>
  <programme start="20260101120000" stop="20260101130000" channel="c1"><title>Good</title></programme>
</tv>`
	g, err := ParseXMLTV(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatalf("ParseXMLTV: %v", err)
	}
	if len(g["c1"]) != 1 || g["c1"][0].Title != "Good" {
		t.Errorf("got %+v, want only the well-formed programme", g["c1"])
	}
}

func TestParseXMLTV_truncatedDocument(t *testing.T) {
	if _, err := ParseXMLTV(strings.NewReader(`<tv><programme start="2026`), 0); err == nil {
		t.Fatal("expected error for truncated document")
	}
}

func TestParseTimestamp_offsetWithoutSpace(t *testing.T) {
	got, err := ParseTimestamp("20260101120000+0200", 0)
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	want := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseTimestamp_empty(t *testing.T) {
	if _, err := ParseTimestamp("", 0); err == nil {
		t.Fatal("expected error for empty token")
	}
}

package workshop

import (
	"strings"
	"testing"
)

const modPageHTML = `<html><head>
<script src="/static/app.js"></script>
</head><body>
<div id="__next">rendered markup</div>
<script id="__NEXT_DATA__" type="application/json">{
  "props": {"pageProps": {
    "asset": {
      "name": "ACE Core",
      "currentVersionNumber": "1.2.0",
      "averageRating": 0.93,
      "updatedAt": "2025-04-01T12:00:00Z",
      "gameVersion": "1.3.0.112",
      "author": {"username": "ACE Team"},
      "dependencies": [
        {"version": "2.0.1", "asset": {"id": "5DEADBEEF0000001", "name": "ACE Medical"}}
      ]
    },
    "getAssetDownloadTotal": {"total": 48211}
  }}
}</script>
</body></html>`

const searchHTML = `<html><body>
<script>window.__telemetry = true;</script>
<script type="application/json">{
  "props": {"pageProps": {"assets": {
    "count": 7,
    "rows": [
      {"id": "A1", "name": "Alpha", "currentVersionNumber": "1.0.0"},
      {"id": "A2", "name": "Alpha Two", "currentVersionNumber": "0.9.1"},
      {"id": "A3", "name": "Alpha Three", "currentVersionNumber": "2.1.0"},
      {"id": "A4", "name": "Alpha Four", "currentVersionNumber": "0.1.0"},
      {"id": "A5", "name": "Alpha Five", "currentVersionNumber": "3.0.0"},
      {"id": "A6", "name": "Alpha Six", "currentVersionNumber": "1.1.1"}
    ]
  }}}
}</script>
</body></html>`

func TestParseModPage(t *testing.T) {
	details, err := parseModPage(strings.NewReader(modPageHTML))
	if err != nil {
		t.Fatalf("parseModPage: %v", err)
	}
	if details.Name != "ACE Core" || details.Version != "1.2.0" {
		t.Errorf("details = %+v", details)
	}
	if details.Author != "ACE Team" {
		t.Errorf("author = %q", details.Author)
	}
	if details.RatingPct != 93 {
		t.Errorf("rating = %d, want 93", details.RatingPct)
	}
	if details.Downloads != 48211 {
		t.Errorf("downloads = %d", details.Downloads)
	}
	if details.UpdatedAt.IsZero() || details.UpdatedAt.Year() != 2025 {
		t.Errorf("updatedAt = %v", details.UpdatedAt)
	}
	if len(details.Dependencies) != 1 || details.Dependencies[0].Name != "ACE Medical" {
		t.Errorf("dependencies = %+v", details.Dependencies)
	}
}

func TestParseModPageNotJSON(t *testing.T) {
	html := `<html><body><script>var x = 1;</script></body></html>`
	if _, err := parseModPage(strings.NewReader(html)); err == nil {
		t.Fatal("expected error for non-JSON script tag")
	}
}

func TestParseSearchCapped(t *testing.T) {
	results, err := parseSearch(strings.NewReader(searchHTML))
	if err != nil {
		t.Fatalf("parseSearch: %v", err)
	}
	if len(results) != maxSearchResults {
		t.Fatalf("got %d results, want %d", len(results), maxSearchResults)
	}
	if results[0].ID != "A1" || results[4].ID != "A5" {
		t.Errorf("results = %+v", results)
	}
}

func TestParseSearchFewerRowsThanCount(t *testing.T) {
	html := `<html><body><script>{
      "props": {"pageProps": {"assets": {
        "count": 3,
        "rows": [{"id": "B1", "name": "Bravo", "currentVersionNumber": "1.0.0"}]
      }}}
    }</script></body></html>`
	results, err := parseSearch(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parseSearch: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

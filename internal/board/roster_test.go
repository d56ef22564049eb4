package board

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/redtalon/talonbot/internal/store"
)

type fakeRosterSource struct {
	entries []store.RosterEntry
}

func (f *fakeRosterSource) Roster() ([]store.RosterEntry, error) {
	return f.entries, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
}

func TestRosterRenderIdempotent(t *testing.T) {
	src := &fakeRosterSource{entries: []store.RosterEntry{
		{DisplayName: "Alice", Status: store.StatusActive, Team: store.TeamChalk, LastActive: "2024-01-01"},
		{DisplayName: "Carol", Status: store.StatusActive, Team: store.TeamGreySection, LastActive: "2024-01-20"},
	}}
	r := NewRoster(nil, src, "chan")
	r.now = fixedNow

	a, err := r.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	b, err := r.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("two renders of identical state differ")
	}
}

func TestRosterGroupsAndLabels(t *testing.T) {
	src := &fakeRosterSource{entries: []store.RosterEntry{
		{DisplayName: "Alice", Status: store.StatusActive, Team: store.TeamChalk, LastActive: "2024-01-01"},
		{DisplayName: "Bob", Status: store.StatusInactive, Team: store.TeamChalk, LastActive: "2024-01-01"},
	}}
	r := NewRoster(nil, src, "chan")
	r.now = fixedNow

	content, err := r.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}

	var chalk *string
	for i := range content.Embeds {
		if content.Embeds[i].Title == store.TeamChalk {
			v := content.Embeds[i].Fields[0].Value
			chalk = &v
			if !strings.Contains(content.Embeds[i].Fields[1].Value, "1m") {
				t.Errorf("elapsed column = %q, want to contain 1m", content.Embeds[i].Fields[1].Value)
			}
		}
	}
	if chalk == nil {
		t.Fatal("no Chalk Team embed rendered")
	}
	if !strings.Contains(*chalk, "Alice") {
		t.Errorf("Chalk Team members = %q, want Alice", *chalk)
	}
	if strings.Contains(*chalk, "Bob") {
		t.Errorf("inactive Bob rendered: %q", *chalk)
	}
}

func TestRosterHiddenTeamsNeverRendered(t *testing.T) {
	src := &fakeRosterSource{entries: []store.RosterEntry{
		{DisplayName: "Newbie", Status: store.StatusActive, Team: store.TeamUnassigned, LastActive: "2024-01-01"},
		{DisplayName: "Recruit", Status: store.StatusActive, Team: store.TeamGreen, LastActive: "2024-01-01"},
		{DisplayName: "Boss", Status: store.StatusActive, Team: store.TeamRedTalon, LastActive: "2024-01-01"},
	}}
	r := NewRoster(nil, src, "chan")
	r.now = fixedNow

	content, err := r.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	for _, e := range content.Embeds {
		if store.HiddenTeams[e.Title] {
			t.Errorf("hidden team %q rendered", e.Title)
		}
		for _, f := range e.Fields {
			if strings.Contains(f.Value, "Newbie") || strings.Contains(f.Value, "Boss") {
				t.Errorf("hidden team member leaked into %q: %q", e.Title, f.Value)
			}
		}
	}
}

func TestRosterEmptyTeamPlaceholder(t *testing.T) {
	r := NewRoster(nil, &fakeRosterSource{}, "chan")
	r.now = fixedNow

	content, err := r.render(context.Background())
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	if len(content.Embeds) == 0 {
		t.Fatal("no embeds for empty roster")
	}
	for _, e := range content.Embeds {
		if !strings.Contains(e.Fields[0].Value, "No members") {
			t.Errorf("team %q: empty bucket rendered without placeholder: %q", e.Title, e.Fields[0].Value)
		}
	}
}

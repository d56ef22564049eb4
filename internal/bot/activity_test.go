package bot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"8", 8 * 3600, false},
		{"23", 23 * 3600, false},
		{"14:30", 14*3600 + 30*60, false},
		{"14:30:45", 14*3600 + 30*60 + 45, false},
		{"24", 0, true},
		{"12:60", 0, true},
		{"12:00:00:00", 0, true},
		{"noon", 0, true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseClock(%q): expected an error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

const consoleLog = `10:14:59.123  some unrelated noise without separators
10:14:59.500 | backend | request: heartbeat
10:15:00.001 | GM_Monitor | instigator: BH-GM, type: spawn, target: Prefabs/Vehicles/M923A1_transport.et
10:15:00.002 | GM_Monitor | instigator: BH-GM, type: spawn, target: Prefabs/Vehicles/M923A1_transport.et
10:15:07.500 | GM_Monitor | instigator: BH-GM, type: context, action: heal, target: bh-player1
10:16:30.000 | GM_Monitor | instigator: BH-GM, type: attribute, attribute: health, target: bh-player1, before: 20, after: 100
11:00:00.000 | GM_Monitor | instigator: bh-other, type: spawn, target: Prefabs/Characters/Rifleman.et
23:59:00.000 | GM_Monitor | instigator: BH-GM, type: spawn, target: Prefabs/Props/Tent.et
`

func writeConsoleLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.log")
	if err := os.WriteFile(path, []byte(consoleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSearchActivities(t *testing.T) {
	path := writeConsoleLog(t)

	groups, err := searchActivities(path, activityQuery{
		InstigatorID: "BH-GM",
		Start:        10 * 3600,
		End:          11 * 3600,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d time groups, want 3: %+v", len(groups), groups)
	}

	// the duplicated spawn at 10:15:00 collapses into one entry
	if groups[0].Time != "10:15:00" {
		t.Errorf("first group time = %s, want 10:15:00", groups[0].Time)
	}
	if len(groups[0].Entries) != 1 || groups[0].Entries[0].Count != 2 {
		t.Errorf("spawn entries = %+v, want one entry with count 2", groups[0].Entries)
	}
	if groups[1].Entries[0].Attrs["action"] != "heal" {
		t.Errorf("context attrs = %+v", groups[1].Entries[0].Attrs)
	}
	if groups[2].Entries[0].Attrs["after"] != "100" {
		t.Errorf("attribute attrs = %+v", groups[2].Entries[0].Attrs)
	}
}

func TestSearchActivitiesFilters(t *testing.T) {
	path := writeConsoleLog(t)

	// type filter
	groups, err := searchActivities(path, activityQuery{
		InstigatorID: "bh-gm",
		Start:        0,
		End:          24*3600 - 1,
		Type:         "spawn",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.Attrs["type"] != "spawn" {
				t.Errorf("type filter leaked %+v", e.Attrs)
			}
		}
	}

	// victim filter
	groups, err = searchActivities(path, activityQuery{
		InstigatorID: "bh-gm",
		Start:        0,
		End:          24*3600 - 1,
		VictimID:     "BH-PLAYER1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Errorf("victim filter: got %d groups, want 2", len(groups))
	}

	// keyword filter
	groups, err = searchActivities(path, activityQuery{
		InstigatorID: "bh-gm",
		Start:        0,
		End:          24*3600 - 1,
		Keyword:      "Tent",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Time != "23:59:00" {
		t.Errorf("keyword filter: got %+v", groups)
	}

	// window excludes everything
	groups, err = searchActivities(path, activityQuery{
		InstigatorID: "bh-gm",
		Start:        2 * 3600,
		End:          3 * 3600,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 0 {
		t.Errorf("empty window returned %+v", groups)
	}
}

func TestSearchActivitiesMissingFile(t *testing.T) {
	groups, err := searchActivities(filepath.Join(t.TempDir(), "nope", "console.log"), activityQuery{
		InstigatorID: "bh-gm",
		End:          24 * 3600,
	})
	if err != nil {
		t.Fatalf("missing log should not error: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("got %+v from a missing log", groups)
	}
}

func TestWriteActivityReport(t *testing.T) {
	path := writeConsoleLog(t)
	groups, err := searchActivities(path, activityQuery{
		InstigatorID: "bh-gm",
		Start:        10 * 3600,
		End:          11 * 3600,
	})
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]string{"bh-player1": "Alice"}
	var sb strings.Builder
	err = writeActivityReport(&sb, []string{"Instigator: GM Bob (ID: d-9)"}, groups, func(id string) string {
		return names[id]
	})
	if err != nil {
		t.Fatal(err)
	}
	report := sb.String()

	for _, want := range []string{
		"Parameters:",
		"  Instigator: GM Bob (ID: d-9)",
		"Activities:",
		"  Time: 10:15:00",
		"    Entry: Spawned m923a1_transport, (x2)",
		"    Entry: Used heal on bh-player1 (Alice), (x1)",
		"    Entry: Changed health of bh-player1 (Alice) from 20 to 100, (x1)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestListLogVersions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"logs_2024-05-10_08-00-00",
		"logs_2024-05-12_21-30-45",
		"logs_2024-05-11_12-15-00",
		"crash_dumps",
	} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "logs_not_a_dir"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := listLogVersions(dir)
	want := []string{"2024-05-12_21-30-45", "2024-05-11_12-15-00", "2024-05-10_08-00-00"}
	if len(got) != len(want) {
		t.Fatalf("versions = %v, want %v", got, want)
	}
	for n := range want {
		if got[n] != want[n] {
			t.Fatalf("versions = %v, want %v", got, want)
		}
	}
}

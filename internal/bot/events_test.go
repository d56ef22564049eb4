package bot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/redtalon/talonbot/internal/gamefile"
	"github.com/redtalon/talonbot/internal/store"
)

// newRoleTestBot wires a bot with an in-memory registry, one server with
// a players-group file, and a role map covering a team role and a
// group-only role.
func newRoleTestBot(t *testing.T) (*Bot, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	groupsPath := filepath.Join(t.TempDir(), "playersgroups.json")
	cfg := &Config{
		GuildID: "guild-1",
		TeamRoles: map[string]TeamRole{
			"role-chalk": {Team: store.TeamChalk, Group: "Chalk"},
			"role-red":   {Team: store.TeamRedSection, Group: "Red"},
			"role-gm":    {Team: "", Group: "GameMaster"},
		},
	}

	b := &Bot{cfg: cfg, store: st}
	b.servers = []*server{{conf: ServerConf{Number: 1, GroupsPath: groupsPath}}}

	if err := st.CreateUser("u1", "alice", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := st.LinkBohemiaID("u1", "bh-1"); err != nil {
		t.Fatal(err)
	}
	return b, groupsPath
}

func readGroupsFile(t *testing.T, path string) map[string][]string {
	t.Helper()
	groups := map[string][]string{}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return groups
	}
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(b, &groups); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return groups
}

func TestTeamRoleAddedAssignsTeamAndGroup(t *testing.T) {
	b, groupsPath := newRoleTestBot(t)

	if !b.handleTeamRoleAdded("u1", "role-chalk") {
		t.Error("team-carrying role add should report a team change")
	}
	if team, _ := b.store.Team("u1"); team != store.TeamChalk {
		t.Errorf("team = %q, want %q", team, store.TeamChalk)
	}
	groups := readGroupsFile(t, groupsPath)
	if len(groups["Chalk"]) != 1 || groups["Chalk"][0] != "bh-1" {
		t.Errorf("Chalk group = %v, want [bh-1]", groups["Chalk"])
	}
}

func TestGroupOnlyRoleStillGrantsGroup(t *testing.T) {
	b, groupsPath := newRoleTestBot(t)

	if b.handleTeamRoleAdded("u1", "role-gm") {
		t.Error("group-only role add should not report a team change")
	}
	if team, _ := b.store.Team("u1"); team != store.TeamUnassigned {
		t.Errorf("team = %q, want %q", team, store.TeamUnassigned)
	}
	groups := readGroupsFile(t, groupsPath)
	if len(groups["GameMaster"]) != 1 || groups["GameMaster"][0] != "bh-1" {
		t.Errorf("GameMaster group = %v, want [bh-1]", groups["GameMaster"])
	}
}

func TestRoleRemovedMismatchedTeamStillRevokesGroup(t *testing.T) {
	b, groupsPath := newRoleTestBot(t)

	// the member held the Red Section role once, but was reassigned to
	// Chalk in the registry before the role removal arrived
	if err := gamefile.AddPlayerToGroup(groupsPath, "Red", "bh-1"); err != nil {
		t.Fatal(err)
	}
	if err := b.store.UpdateTeam("u1", store.TeamChalk); err != nil {
		t.Fatal(err)
	}

	if b.handleTeamRoleRemoved("u1", "role-red") {
		t.Error("mismatched removal should not report a team change")
	}
	if team, _ := b.store.Team("u1"); team != store.TeamChalk {
		t.Errorf("team = %q, want %q (removal must not clobber it)", team, store.TeamChalk)
	}
	groups := readGroupsFile(t, groupsPath)
	if len(groups["Red"]) != 0 {
		t.Errorf("Red group = %v, want the member revoked", groups["Red"])
	}
}

func TestRoleRemovedExactMatchClearsTeamAndGroup(t *testing.T) {
	b, groupsPath := newRoleTestBot(t)

	if err := gamefile.AddPlayerToGroup(groupsPath, "Chalk", "bh-1"); err != nil {
		t.Fatal(err)
	}
	if err := b.store.UpdateTeam("u1", store.TeamChalk); err != nil {
		t.Fatal(err)
	}

	if !b.handleTeamRoleRemoved("u1", "role-chalk") {
		t.Error("exact-match removal should report a team change")
	}
	if team, _ := b.store.Team("u1"); team != store.TeamUnassigned {
		t.Errorf("team = %q, want %q", team, store.TeamUnassigned)
	}
	groups := readGroupsFile(t, groupsPath)
	if len(groups["Chalk"]) != 0 {
		t.Errorf("Chalk group = %v, want the member revoked", groups["Chalk"])
	}
}

func TestUnmappedRoleIsIgnored(t *testing.T) {
	b, groupsPath := newRoleTestBot(t)

	if b.handleTeamRoleAdded("u1", "role-unknown") {
		t.Error("unmapped role add should be a no-op")
	}
	if b.handleTeamRoleRemoved("u1", "role-unknown") {
		t.Error("unmapped role removal should be a no-op")
	}
	if _, err := os.Stat(groupsPath); !os.IsNotExist(err) {
		t.Error("groups file written for an unmapped role")
	}
}

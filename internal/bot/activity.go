package bot

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// logVersionLayout matches the timestamp the game server embeds in its
// per-run log directory names (logs_2024-05-12_21-30-45).
const logVersionLayout = "2006-01-02_15-04-05"

var spaceRun = regexp.MustCompile(`\s+`)

// activityQuery selects game-master log lines from one console log.
// Times are seconds since midnight; ids are compared case-insensitively
// because the whole line is lowercased before parsing.
type activityQuery struct {
	InstigatorID string
	Start, End   int
	Type         string
	VictimID     string
	Keyword      string
}

type activityEntry struct {
	Attrs map[string]string
	Count int
}

// activityGroup is every distinct entry logged at one second, with
// repeats collapsed into counts.
type activityGroup struct {
	Time    string
	Entries []activityEntry
}

// parseClock parses "H", "H:M" or "H:M:S" (24 hour) into seconds since
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	total := 0
	limits := []int{23, 59, 59}
	for n, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > limits[n] {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		total = total*60 + v
	}
	for n := len(parts); n < 3; n++ {
		total *= 60
	}
	return total, nil
}

func clockLabel(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// searchActivities scans a console log for game-master actions matching
// the query. A missing log file yields an empty result, not an error.
func searchActivities(logPath string, q activityQuery) ([]activityGroup, error) {
	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open console log: %w", err)
	}
	defer f.Close()

	var groups []activityGroup
	index := map[string]int{}
	keys := map[string]map[string]int{}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := spaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(sc.Text())), " ")
		elements := strings.Split(line, " | ")
		if len(elements) < 3 {
			continue
		}
		if len(elements[0]) < 8 {
			continue
		}
		lineTime, err := parseClock(elements[0][:8])
		if err != nil || lineTime < q.Start || lineTime > q.End {
			continue
		}
		if elements[1] != "gm_monitor" {
			continue
		}

		attrs := parseAttributes(elements[2])
		if attrs["instigator"] != strings.ToLower(q.InstigatorID) {
			continue
		}
		if q.Type != "" && attrs["type"] != q.Type {
			continue
		}
		if q.VictimID != "" && attrs["target"] != strings.ToLower(q.VictimID) {
			continue
		}
		if q.Keyword != "" && !strings.Contains(line, strings.ToLower(q.Keyword)) {
			continue
		}

		ts := clockLabel(lineTime)
		gi, ok := index[ts]
		if !ok {
			gi = len(groups)
			index[ts] = gi
			groups = append(groups, activityGroup{Time: ts})
			keys[ts] = map[string]int{}
		}
		key := attributeKey(attrs)
		if ei, ok := keys[ts][key]; ok {
			groups[gi].Entries[ei].Count++
			continue
		}
		keys[ts][key] = len(groups[gi].Entries)
		groups[gi].Entries = append(groups[gi].Entries, activityEntry{Attrs: attrs, Count: 1})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read console log: %w", err)
	}
	return groups, nil
}

func parseAttributes(s string) map[string]string {
	attrs := map[string]string{}
	for _, part := range strings.Split(s, ", ") {
		kv := strings.SplitN(part, ": ", 2)
		if len(kv) != 2 {
			continue
		}
		attrs[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return attrs
}

// attributeKey gives a stable identity to an entry so duplicates within
// the same second collapse into a count.
func attributeKey(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(attrs[k])
		sb.WriteByte(';')
	}
	return sb.String()
}

// writeActivityReport renders the result file uploaded back to Discord.
// nameFor resolves a player id to a member display name, or "".
func writeActivityReport(w io.Writer, params []string, groups []activityGroup, nameFor func(bohemiaID string) string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "Parameters:")
	for _, p := range params {
		fmt.Fprintf(bw, "  %s\n", p)
	}
	fmt.Fprintln(bw, "\nActivities:")
	for _, g := range groups {
		fmt.Fprintf(bw, "  Time: %s\n", g.Time)
		for _, e := range g.Entries {
			fmt.Fprintf(bw, "    Entry: %s, (x%d)\n", describeEntry(e.Attrs, nameFor), e.Count)
		}
	}
	return bw.Flush()
}

func describeEntry(attrs map[string]string, nameFor func(string) string) string {
	target := attrs["target"]
	switch attrs["type"] {
	case "spawn":
		// the target is a prefab path; keep the file stem
		name := target[strings.LastIndex(target, "/")+1:]
		if len(name) > 3 {
			name = name[:len(name)-3]
		}
		return fmt.Sprintf("Spawned %s", name)
	case "context":
		return fmt.Sprintf("Used %s on %s (%s)", attrs["action"], target, displayNameOr(nameFor, target))
	case "attribute":
		return fmt.Sprintf("Changed %s of %s (%s) from %s to %s",
			attrs["attribute"], target, displayNameOr(nameFor, target), attrs["before"], attrs["after"])
	default:
		return fmt.Sprintf("Unknown action on %s", target)
	}
}

func displayNameOr(nameFor func(string) string, bohemiaID string) string {
	if name := nameFor(bohemiaID); name != "" {
		return name
	}
	return "N/A"
}

// listLogVersions lists the per-run log directory suffixes under logDir,
// newest first.
func listLogVersions(logDir string) []string {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "logs_") {
			versions = append(versions, strings.TrimPrefix(e.Name(), "logs_"))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions
}

func (b *Bot) logVersionChoices(current string) []*discordgo.ApplicationCommandOptionChoice {
	const maxChoices = 25
	var choices []*discordgo.ApplicationCommandOptionChoice
	for n, v := range listLogVersions(b.cfg.LogDir) {
		if !strings.Contains(strings.ToLower(v), strings.ToLower(current)) {
			continue
		}
		name := v
		if t, err := time.Parse(logVersionLayout, v); err == nil {
			name = fmt.Sprintf("Date: %s, Time: %s", t.Format("02.01.2006"), t.Format("15:04:05"))
		}
		if n == 0 {
			name += " (current)"
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: v})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

func (b *Bot) showGMActivity(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	if !b.isGameMaster(i) {
		b.respond(i, "You don't have permission to use this command.")
		return
	}

	instigator := opts["instigator"].UserValue(b.session)
	instigatorID, ok := b.memberBohemiaID(i, instigator.ID, instigator.Username)
	if !ok {
		return
	}

	var victim *discordgo.User
	victimID := ""
	if v, present := opts["victim"]; present {
		victim = v.UserValue(b.session)
		if victimID, ok = b.memberBohemiaID(i, victim.ID, victim.Username); !ok {
			return
		}
	}

	start, err := parseClock(opts["start"].StringValue())
	if err != nil {
		b.respond(i, err.Error())
		return
	}
	end, err := parseClock(opts["end"].StringValue())
	if err != nil {
		b.respond(i, err.Error())
		return
	}

	ephemeral := true
	if v, present := opts["visibility"]; present && v.StringValue() == "Everyone" {
		ephemeral = false
	}
	typ := ""
	if v, present := opts["type"]; present {
		typ = v.StringValue()
	}
	keyword := ""
	if v, present := opts["keyword"]; present {
		keyword = v.StringValue()
	}
	logVersion := opts["log_version"].StringValue()

	if err := b.deferReply(i, ephemeral); err != nil {
		return
	}

	logPath := filepath.Join(b.cfg.LogDir, "logs_"+logVersion, "console.log")
	groups, err := searchActivities(logPath, activityQuery{
		InstigatorID: instigatorID,
		Start:        start,
		End:          end,
		Type:         typ,
		VictimID:     victimID,
		Keyword:      keyword,
	})
	if err != nil {
		b.followupText(i, fmt.Sprintf("Search failed: %v", err), ephemeral)
		return
	}

	params := []string{
		fmt.Sprintf("Instigator: %s (ID: %s)", instigator.Username, instigator.ID),
		fmt.Sprintf("Log Version: %s", logVersion),
		fmt.Sprintf("Start Time: %s", clockLabel(start)),
		fmt.Sprintf("End Time: %s", clockLabel(end)),
	}
	if typ != "" {
		params = append(params, fmt.Sprintf("Type: %s", typ))
	}
	if victim != nil {
		params = append(params, fmt.Sprintf("Victim: %s (ID: %s)", victim.Username, victim.ID))
	}
	if keyword != "" {
		params = append(params, fmt.Sprintf("Keyword: %s", keyword))
	}

	var report strings.Builder
	err = writeActivityReport(&report, params, groups, func(bohemiaID string) string {
		u, err := b.store.UserByBohemiaID(bohemiaID)
		if err != nil || u == nil {
			return ""
		}
		return u.DisplayName
	})
	if err != nil {
		b.followupText(i, fmt.Sprintf("Report failed: %v", err), ephemeral)
		return
	}

	_, err = b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Files: []*discordgo.File{{Name: "result.txt", Reader: strings.NewReader(report.String())}},
		Flags: webhookFlags(ephemeral),
	})
	if err != nil {
		log.Printf("[bot] followup upload: %v", err)
	}
}

func (b *Bot) isGameMaster(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	for _, have := range i.Member.Roles {
		for _, want := range b.cfg.GMRoleIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (b *Bot) followupText(i *discordgo.InteractionCreate, text string, ephemeral bool) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: text,
		Flags:   webhookFlags(ephemeral),
	})
	if err != nil {
		log.Printf("[bot] followup: %v", err)
	}
}

func webhookFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

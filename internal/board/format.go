package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/redtalon/talonbot/internal/store"
)

// Embed colors shared by the boards.
const (
	colorGreen     = 0x2ECC71
	colorRed       = 0xE74C3C
	colorYellow    = 0xFEE75C
	colorBlue      = 0x3498DB
	colorGold      = 0xF1C40F
	colorLightGrey = 0x979C9F
	colorCrimson   = 0xDC143C
	colorNearWhite = 0xFFFFFE
	colorNearBlack = 0x000001
)

// maxNameLen bounds display names in board columns so the embed fields
// line up.
const maxNameLen = 23

func truncateName(name string) string {
	if len(name) > maxNameLen {
		return name[:maxNameLen] + "..."
	}
	return name
}

// elapsedLabel renders the time since a stored date as a short
// human-readable label: "Today", "Nd", "Nm Nd" or "Ny Nm", with zero
// remainders omitted.
func elapsedLabel(lastActive string, now time.Time) string {
	if lastActive == "" {
		return "N/A"
	}
	d, err := time.Parse(store.DateLayout, lastActive)
	if err != nil {
		return "N/A"
	}
	days := int(now.Sub(d).Hours() / 24)

	switch {
	case days > 365:
		label := fmt.Sprintf("%dy", days/365)
		if m := (days % 365) / 30; m > 0 {
			label += fmt.Sprintf(" %dm", m)
		}
		return label
	case days > 30:
		label := fmt.Sprintf("%dm", days/30)
		if r := days % 30; r > 0 {
			label += fmt.Sprintf(" %dd", r)
		}
		return label
	case days > 0:
		return fmt.Sprintf("%dd", days)
	default:
		return "Today"
	}
}

// humanizeScenario turns a packed scenario id such as
// "{ECC61978EDCC2B5A}Missions/23_Campaign.conf" into "Campaign". The
// last path segment is kept, the extension stripped, and camel-cased
// runs split into words.
func humanizeScenario(scenarioID string) string {
	if scenarioID == "" {
		return ""
	}
	segment := scenarioID
	if i := strings.LastIndexByte(segment, '/'); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.IndexByte(segment, '.'); i >= 0 {
		segment = segment[:i]
	}
	return strings.Join(splitCaps(segment), " ")
}

// splitCaps extracts capitalized words: an uppercase run not followed by
// a lowercase letter is one word, otherwise a single capital starts a
// word that swallows the following lowercase run. Digits and other
// characters are dropped, matching how scenario ids encode their names.
func splitCaps(s string) []string {
	var words []string
	runes := []rune(s)
	for i := 0; i < len(runes); {
		if !isUpper(runes[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && isUpper(runes[j]) {
			j++
		}
		if j-i > 1 {
			// Uppercase run. If a lowercase follows, its last capital
			// belongs to the next word.
			if j < len(runes) && isLower(runes[j]) {
				j--
			}
			words = append(words, string(runes[i:j]))
			i = j
			continue
		}
		for j < len(runes) && isLower(runes[j]) {
			j++
		}
		words = append(words, string(runes[i:j]))
		i = j
	}
	return words
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

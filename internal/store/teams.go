package store

// Member status values accepted by the registry.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
	StatusBanned   = "Banned"
	StatusRetired  = "Retired"
)

// Team names in their fixed display order. The order matters: the roster
// board walks this slice when building its per-team buckets.
var Teams = []string{
	TeamUnassigned,
	TeamGreen,
	TeamChalk,
	TeamRedSection,
	TeamGreySection,
	TeamBlackSection,
	TeamRedTalon,
}

const (
	TeamUnassigned   = "Unassigned"
	TeamGreen        = "Green Team"
	TeamChalk        = "Chalk Team"
	TeamRedSection   = "Red Section"
	TeamGreySection  = "Grey Section"
	TeamBlackSection = "Black Section"
	TeamRedTalon     = "Red Talon"
)

// HiddenTeams are never rendered on the public roster board: the
// pre-vetting pools and the leadership tier.
var HiddenTeams = map[string]bool{
	TeamUnassigned: true,
	TeamGreen:      true,
	TeamRedTalon:   true,
}

// ValidTeam reports whether name is one of the known teams.
func ValidTeam(name string) bool {
	for _, t := range Teams {
		if t == name {
			return true
		}
	}
	return false
}

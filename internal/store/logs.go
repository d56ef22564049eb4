package store

import "time"

// deletedID replaces a discord id in audit rows when the member is
// deleted, so history survives without identifying the person.
const deletedID = "-1"

// TeamLog is one team-assignment audit entry.
type TeamLog struct {
	ID           int64
	InstigatorID string
	TargetID     string
	Team         string
	Details      string
	Timestamp    time.Time
}

// MisconductLog is one misconduct report.
type MisconductLog struct {
	ID           int64
	InstigatorID string
	TargetID     string
	VictimID     string
	Category     string
	Type         string
	Details      string
	Severity     int
	Timestamp    time.Time
}

// CreateTeamLog records a team assignment change.
func (s *Store) CreateTeamLog(instigatorID, targetID, team, details string) error {
	_, err := s.db.Exec(
		"INSERT INTO team_logs (instigator_discord_id, target_discord_id, team, details) VALUES (?, ?, ?, ?)",
		instigatorID, targetID, team, details,
	)
	return err
}

// TeamLogsByTarget lists team history for one member, oldest first.
func (s *Store) TeamLogsByTarget(targetID string) ([]TeamLog, error) {
	rows, err := s.db.Query(
		"SELECT id, instigator_discord_id, target_discord_id, team, details, timestamp FROM team_logs WHERE target_discord_id = ? ORDER BY id",
		targetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamLog
	for rows.Next() {
		var l TeamLog
		if err := rows.Scan(&l.ID, &l.InstigatorID, &l.TargetID, &l.Team, &l.Details, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateMisconductLog records a misconduct report. victimID may be empty.
func (s *Store) CreateMisconductLog(instigatorID, targetID, victimID, category, typ, details string, severity int) error {
	_, err := s.db.Exec(
		"INSERT INTO misconduct_logs (instigator_discord_id, target_discord_id, victim_discord_id, category, type, details, severity) VALUES (?, ?, ?, ?, ?, ?, ?)",
		instigatorID, targetID, victimID, category, typ, details, severity,
	)
	return err
}

// MisconductLogsByTarget lists misconduct reports against one member.
func (s *Store) MisconductLogsByTarget(targetID string) ([]MisconductLog, error) {
	rows, err := s.db.Query(
		"SELECT id, instigator_discord_id, target_discord_id, COALESCE(victim_discord_id, ''), category, type, details, severity, timestamp FROM misconduct_logs WHERE target_discord_id = ? ORDER BY id",
		targetID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MisconductLog
	for rows.Next() {
		var l MisconductLog
		if err := rows.Scan(&l.ID, &l.InstigatorID, &l.TargetID, &l.VictimID, &l.Category, &l.Type, &l.Details, &l.Severity, &l.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ScrubUserFromLogs anonymizes every audit row that references the member,
// in both log tables. Called alongside DeleteUser.
func (s *Store) ScrubUserFromLogs(discordID string) error {
	stmts := []string{
		"UPDATE team_logs SET instigator_discord_id = ? WHERE instigator_discord_id = ?",
		"UPDATE team_logs SET target_discord_id = ? WHERE target_discord_id = ?",
		"UPDATE misconduct_logs SET instigator_discord_id = ? WHERE instigator_discord_id = ?",
		"UPDATE misconduct_logs SET target_discord_id = ? WHERE target_discord_id = ?",
		"UPDATE misconduct_logs SET victim_discord_id = ? WHERE victim_discord_id = ?",
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q, deletedID, discordID); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DateLayout is how last_active dates are stored and compared.
const DateLayout = "2006-01-02"

// User is one registered member.
type User struct {
	DiscordID   string
	Username    string
	DisplayName string
	Status      string
	Team        string
	LastActive  string // DateLayout
	BohemiaID   string // empty when not linked
}

// RosterEntry is the projection the roster board consumes.
type RosterEntry struct {
	DisplayName string
	Status      string
	Team        string
	LastActive  string // DateLayout
}

// CreateUser registers a member. Existing rows are left untouched.
func (s *Store) CreateUser(discordID, username, displayName string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO users (discord_id, discord_username, discord_displayname) VALUES (?, ?, ?)",
		discordID, username, displayName,
	)
	return err
}

// User returns the member with the given discord id, or nil when absent.
func (s *Store) User(discordID string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT discord_id, discord_username, discord_displayname, status, team, last_active, bohemia_id FROM users WHERE discord_id = ?",
		discordID,
	))
}

// UserByBohemiaID returns the member linked to the given external id, or
// nil when no member is linked to it.
func (s *Store) UserByBohemiaID(bohemiaID string) (*User, error) {
	return s.scanUser(s.db.QueryRow(
		"SELECT discord_id, discord_username, discord_displayname, status, team, last_active, bohemia_id FROM users WHERE bohemia_id = ?",
		bohemiaID,
	))
}

// UserExistsByBohemiaID reports whether any member is linked to the
// given external id. Backs the identity cache's registry lookup.
func (s *Store) UserExistsByBohemiaID(bohemiaID string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM users WHERE bohemia_id = ?", bohemiaID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var bohemia sql.NullString
	err := row.Scan(&u.DiscordID, &u.Username, &u.DisplayName, &u.Status, &u.Team, &u.LastActive, &bohemia)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.BohemiaID = bohemia.String
	return &u, nil
}

// Team returns the member's team, or "" when the member is not registered.
func (s *Store) Team(discordID string) (string, error) {
	return s.stringColumn("team", discordID)
}

// BohemiaID returns the member's linked external id, or "" when unlinked
// or unregistered.
func (s *Store) BohemiaID(discordID string) (string, error) {
	return s.stringColumn("bohemia_id", discordID)
}

// DisplayName returns the member's display name, or "" when unregistered.
func (s *Store) DisplayName(discordID string) (string, error) {
	return s.stringColumn("discord_displayname", discordID)
}

func (s *Store) stringColumn(column, discordID string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow(
		fmt.Sprintf("SELECT %s FROM users WHERE discord_id = ?", column), discordID,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v.String, nil
}

// UpdateTeam moves the member to the given team.
func (s *Store) UpdateTeam(discordID, team string) error {
	if !ValidTeam(team) {
		return fmt.Errorf("store: unknown team %q", team)
	}
	_, err := s.db.Exec("UPDATE users SET team = ? WHERE discord_id = ?", team, discordID)
	return err
}

// UpdateStatus sets the member's status.
func (s *Store) UpdateStatus(discordID, status string) error {
	_, err := s.db.Exec("UPDATE users SET status = ? WHERE discord_id = ?", status, discordID)
	return err
}

// LinkBohemiaID associates the member with an external player id.
func (s *Store) LinkBohemiaID(discordID, bohemiaID string) error {
	_, err := s.db.Exec("UPDATE users SET bohemia_id = ? WHERE discord_id = ?", bohemiaID, discordID)
	return err
}

// DeleteUser removes the member entirely.
func (s *Store) DeleteUser(discordID string) error {
	_, err := s.db.Exec("DELETE FROM users WHERE discord_id = ?", discordID)
	return err
}

// ResetLastActive stamps the member's last-active date to today. Called
// when a linked player is observed on the game server.
func (s *Store) ResetLastActive(discordID string) error {
	_, err := s.db.Exec(
		"UPDATE users SET last_active = ? WHERE discord_id = ?",
		time.Now().Format(DateLayout), discordID,
	)
	return err
}

// Roster lists every member ordered by last-active ascending, the order
// the roster board renders in.
func (s *Store) Roster() ([]RosterEntry, error) {
	rows, err := s.db.Query(
		"SELECT discord_displayname, status, team, last_active FROM users ORDER BY last_active",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.DisplayName, &e.Status, &e.Team, &e.LastActive); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

package store

import (
	"database/sql"
	"errors"
)

// BoardMessage returns the last persisted message for a board key.
// found is false when the board has never been created; the mapping is
// advisory only, the message itself may have been deleted since.
func (s *Store) BoardMessage(boardKey string) (channelID, messageID string, found bool, err error) {
	err = s.db.QueryRow(
		"SELECT channel_id, message_id FROM board_messages WHERE board_key = ?", boardKey,
	).Scan(&channelID, &messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return channelID, messageID, true, nil
}

// SetBoardMessage records the live message for a board key, replacing any
// previous mapping.
func (s *Store) SetBoardMessage(boardKey, channelID, messageID string) error {
	_, err := s.db.Exec(
		"INSERT INTO board_messages (board_key, channel_id, message_id) VALUES (?, ?, ?) "+
			"ON CONFLICT(board_key) DO UPDATE SET channel_id = excluded.channel_id, message_id = excluded.message_id",
		boardKey, channelID, messageID,
	)
	return err
}

// DeleteBoardMessage drops the mapping for a board key.
func (s *Store) DeleteBoardMessage(boardKey string) error {
	_, err := s.db.Exec("DELETE FROM board_messages WHERE board_key = ?", boardKey)
	return err
}

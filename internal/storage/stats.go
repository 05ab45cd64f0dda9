package storage

import (
	"context"
	"strings"
	"time"
)

type CommandUse struct {
	GuildID string
	UserID  string
	Command string
	UsedAt  time.Time
}

type ModAction struct {
	ID        int64
	GuildID   string
	UserID    string
	Kind      string
	Details   string
	CreatedAt time.Time
}

// InsertCommandUses writes the whole batch in a single multi-row insert.
func (s *Store) InsertCommandUses(ctx context.Context, uses []CommandUse) error {
	if len(uses) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO command_stats (guild_id, user_id, command, used_at) VALUES `)
	args := make([]any, 0, len(uses)*4)
	for i, use := range uses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, use.GuildID, use.UserID, use.Command, use.UsedAt.Unix())
	}

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// CountCommandUses reports how many command invocations have been recorded.
func (s *Store) CountCommandUses(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM command_stats`).Scan(&count)
	return count, err
}

// TopCommands returns the most used commands across all guilds.
func (s *Store) TopCommands(ctx context.Context, limit int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command, COUNT(*) AS uses
		FROM command_stats
		GROUP BY command
		ORDER BY uses DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var command string
		var uses int
		if err := rows.Scan(&command, &uses); err != nil {
			return nil, err
		}
		counts[command] = uses
	}
	return counts, rows.Err()
}

func (s *Store) AddModAction(ctx context.Context, action ModAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_actions (guild_id, user_id, kind, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, action.GuildID, action.UserID, action.Kind, action.Details, action.CreatedAt.Unix())
	return err
}

func (s *Store) ListModActions(ctx context.Context, guildID string, since time.Time) ([]ModAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, kind, details, created_at
		FROM mod_actions
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ModAction
	for rows.Next() {
		var action ModAction
		var created int64
		if err := rows.Scan(&action.ID, &action.GuildID, &action.UserID, &action.Kind, &action.Details, &created); err != nil {
			return nil, err
		}
		action.CreatedAt = time.Unix(created, 0)
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

type GuildSettings struct {
	GuildID              string
	Prefix               string
	ReportsChannel       string
	AlertRole            string
	MutedRole            string
	ModLogChannel        string
	MessageDeleteChannel string
	MessageEditChannel   string
	ReportSelf           bool
	ReportBots           bool
	ReportAdmins         bool
	InviteFilter         bool
	LinkFilter           bool
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT prefix, reports_channel, alert_role, muted_role, mod_log_channel,
		message_delete_channel, message_edit_channel,
		report_self, report_bots, report_admins, invite_filter, link_filter
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	var reportSelf, reportBots, reportAdmins, inviteFilter, linkFilter int
	err := row.Scan(
		&result.Prefix,
		&result.ReportsChannel,
		&result.AlertRole,
		&result.MutedRole,
		&result.ModLogChannel,
		&result.MessageDeleteChannel,
		&result.MessageEditChannel,
		&reportSelf,
		&reportBots,
		&reportAdmins,
		&inviteFilter,
		&linkFilter,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	result.ReportSelf = reportSelf == 1
	result.ReportBots = reportBots == 1
	result.ReportAdmins = reportAdmins == 1
	result.InviteFilter = inviteFilter == 1
	result.LinkFilter = linkFilter == 1
	if result.Prefix == "" {
		result.Prefix = defaults.Prefix
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (
			guild_id, prefix, reports_channel, alert_role, muted_role, mod_log_channel,
			message_delete_channel, message_edit_channel,
			report_self, report_bots, report_admins, invite_filter, link_filter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			prefix = excluded.prefix,
			reports_channel = excluded.reports_channel,
			alert_role = excluded.alert_role,
			muted_role = excluded.muted_role,
			mod_log_channel = excluded.mod_log_channel,
			message_delete_channel = excluded.message_delete_channel,
			message_edit_channel = excluded.message_edit_channel,
			report_self = excluded.report_self,
			report_bots = excluded.report_bots,
			report_admins = excluded.report_admins,
			invite_filter = excluded.invite_filter,
			link_filter = excluded.link_filter
	`,
		settings.GuildID,
		settings.Prefix,
		settings.ReportsChannel,
		settings.AlertRole,
		settings.MutedRole,
		settings.ModLogChannel,
		settings.MessageDeleteChannel,
		settings.MessageEditChannel,
		boolToInt(settings.ReportSelf),
		boolToInt(settings.ReportBots),
		boolToInt(settings.ReportAdmins),
		boolToInt(settings.InviteFilter),
		boolToInt(settings.LinkFilter),
	)
	return err
}

func (s *Store) AddFilteredWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO filtered_words (guild_id, word) VALUES (?, ?)`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) RemoveFilteredWord(ctx context.Context, guildID, word string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filtered_words WHERE guild_id = ? AND word = ?`, guildID, strings.ToLower(word))
	return err
}

func (s *Store) ListFilteredWords(ctx context.Context, guildID string) ([]string, error) {
	return s.listStrings(ctx, `SELECT word FROM filtered_words WHERE guild_id = ? ORDER BY word`, guildID)
}

func (s *Store) AddLinkWhitelist(ctx context.Context, guildID, pattern string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO link_whitelist (guild_id, pattern) VALUES (?, ?)`, guildID, strings.ToLower(pattern))
	return err
}

func (s *Store) RemoveLinkWhitelist(ctx context.Context, guildID, pattern string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM link_whitelist WHERE guild_id = ? AND pattern = ?`, guildID, strings.ToLower(pattern))
	return err
}

func (s *Store) ListLinkWhitelist(ctx context.Context, guildID string) ([]string, error) {
	return s.listStrings(ctx, `SELECT pattern FROM link_whitelist WHERE guild_id = ? ORDER BY pattern`, guildID)
}

func (s *Store) listStrings(ctx context.Context, query, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}

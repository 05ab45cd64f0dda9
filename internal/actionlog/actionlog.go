// Package actionlog records moderation interventions in one place: the
// datastore for later review, the structured log, and an optional notifier
// that renders the action into the guild's mod-log channel.
package actionlog

import (
	"context"
	"time"

	"warden/internal/storage"

	"go.uber.org/zap"
)

const (
	KindFilterDelete  = "filter_delete"
	KindFilterTimeout = "filter_timeout"
	KindReport        = "report"
	KindMessageDelete = "message_delete"
	KindMessageEdit   = "message_edit"
	KindMemberUpdate  = "member_update"
	KindRoleDelete    = "role_delete"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.ModAction)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// SetNotifier installs the callback that forwards actions to the guild's
// mod-log channel. Wired late because the bot session does not exist yet
// when the logger is built.
func (l *Logger) SetNotifier(notify func(context.Context, storage.ModAction)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, guildID, userID, kind, details string) {
	action := storage.ModAction{
		GuildID:   guildID,
		UserID:    userID,
		Kind:      kind,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		if err := l.store.AddModAction(ctx, action); err != nil {
			l.logger.Warn("mod action not persisted", zap.String("kind", kind), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, action)
	}
	l.logger.Info("mod action", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("kind", kind), zap.String("details", details))
}

// Recent returns the guild's actions from the last window, newest first.
func (l *Logger) Recent(ctx context.Context, guildID string, window time.Duration) ([]storage.ModAction, error) {
	return l.store.ListModActions(ctx, guildID, time.Now().Add(-window))
}

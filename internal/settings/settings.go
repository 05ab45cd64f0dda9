// Package settings holds the per-guild configuration cache. The in-memory
// copy is the sole authority once a guild is loaded; every mutation writes
// through to sqlite before updating the cache.
package settings

import (
	"context"
	"sync"

	"warden/internal/storage"

	"go.uber.org/zap"
)

type Guild struct {
	storage.GuildSettings
	WhitelistedLinks []string
	FilteredWords    []string
}

type Store interface {
	Get(ctx context.Context, guildID string) Guild
	Set(ctx context.Context, guild Guild) error
	AddWord(ctx context.Context, guildID, word string) error
	RemoveWord(ctx context.Context, guildID, word string) error
	AddWhitelist(ctx context.Context, guildID, pattern string) error
	RemoveWhitelist(ctx context.Context, guildID, pattern string) error
}

type SQLStore struct {
	mu            sync.RWMutex
	store         *storage.Store
	logger        *zap.Logger
	defaultPrefix string
	guilds        map[string]Guild
}

func NewSQLStore(store *storage.Store, logger *zap.Logger, defaultPrefix string) *SQLStore {
	if defaultPrefix == "" {
		defaultPrefix = "?"
	}
	return &SQLStore{
		store:         store,
		logger:        logger,
		defaultPrefix: defaultPrefix,
		guilds:        make(map[string]Guild),
	}
}

func (s *SQLStore) defaults(guildID string) storage.GuildSettings {
	return storage.GuildSettings{
		GuildID:      guildID,
		Prefix:       s.defaultPrefix,
		ReportSelf:   true,
		ReportBots:   true,
		ReportAdmins: true,
		InviteFilter: false,
		LinkFilter:   false,
	}
}

// Get returns the cached settings for the guild, loading them lazily on the
// first access. Load failures fall back to the documented defaults.
func (s *SQLStore) Get(ctx context.Context, guildID string) Guild {
	s.mu.RLock()
	guild, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if ok {
		return guild
	}

	guild = Guild{GuildSettings: s.defaults(guildID)}
	loaded, err := s.store.GetGuildSettings(ctx, guildID, guild.GuildSettings)
	if err != nil {
		s.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return guild
	}
	guild.GuildSettings = loaded

	if words, err := s.store.ListFilteredWords(ctx, guildID); err == nil {
		guild.FilteredWords = words
	}
	if patterns, err := s.store.ListLinkWhitelist(ctx, guildID); err == nil {
		guild.WhitelistedLinks = patterns
	}

	s.mu.Lock()
	if cached, ok := s.guilds[guildID]; ok {
		guild = cached
	} else {
		s.guilds[guildID] = guild
	}
	s.mu.Unlock()
	return guild
}

func (s *SQLStore) Set(ctx context.Context, guild Guild) error {
	if err := s.store.UpsertGuildSettings(ctx, guild.GuildSettings); err != nil {
		return err
	}
	s.mu.Lock()
	s.guilds[guild.GuildID] = guild
	s.mu.Unlock()
	return nil
}

func (s *SQLStore) AddWord(ctx context.Context, guildID, word string) error {
	if err := s.store.AddFilteredWord(ctx, guildID, word); err != nil {
		return err
	}
	return s.reloadLists(ctx, guildID)
}

func (s *SQLStore) RemoveWord(ctx context.Context, guildID, word string) error {
	if err := s.store.RemoveFilteredWord(ctx, guildID, word); err != nil {
		return err
	}
	return s.reloadLists(ctx, guildID)
}

func (s *SQLStore) AddWhitelist(ctx context.Context, guildID, pattern string) error {
	if err := s.store.AddLinkWhitelist(ctx, guildID, pattern); err != nil {
		return err
	}
	return s.reloadLists(ctx, guildID)
}

func (s *SQLStore) RemoveWhitelist(ctx context.Context, guildID, pattern string) error {
	if err := s.store.RemoveLinkWhitelist(ctx, guildID, pattern); err != nil {
		return err
	}
	return s.reloadLists(ctx, guildID)
}

func (s *SQLStore) reloadLists(ctx context.Context, guildID string) error {
	guild := s.Get(ctx, guildID)

	words, err := s.store.ListFilteredWords(ctx, guildID)
	if err != nil {
		return err
	}
	patterns, err := s.store.ListLinkWhitelist(ctx, guildID)
	if err != nil {
		return err
	}
	guild.FilteredWords = words
	guild.WhitelistedLinks = patterns

	s.mu.Lock()
	s.guilds[guildID] = guild
	s.mu.Unlock()
	return nil
}

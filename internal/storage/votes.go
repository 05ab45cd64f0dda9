package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Voter struct {
	UserID     string
	VoteStreak int
	LastVote   time.Time
	TotalVotes int
	TotalCoins int
}

type VoteEvent struct {
	ID        int64
	UserID    string
	VotedAt   time.Time
	IsWeekend bool
	Coins     int
}

func (s *Store) GetVoter(ctx context.Context, userID string) (Voter, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, vote_streak, last_vote, total_votes, total_coins
		FROM vote_users WHERE user_id = ?
	`, userID)

	var v Voter
	var lastVote int64
	err := row.Scan(&v.UserID, &v.VoteStreak, &lastVote, &v.TotalVotes, &v.TotalCoins)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Voter{UserID: userID}, false, nil
		}
		return Voter{}, false, err
	}
	v.LastVote = time.Unix(lastVote, 0)
	return v, true, nil
}

// RecordVote writes the voter row update and the history event in one
// transaction so a crash cannot leave the streak and the ledger out of step.
func (s *Store) RecordVote(ctx context.Context, voter Voter, event VoteEvent) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_users (user_id, vote_streak, last_vote, total_votes, total_coins)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			vote_streak = excluded.vote_streak,
			last_vote = excluded.last_vote,
			total_votes = excluded.total_votes,
			total_coins = excluded.total_coins
	`, voter.UserID, voter.VoteStreak, voter.LastVote.Unix(), voter.TotalVotes, voter.TotalCoins)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_events (user_id, voted_at, is_weekend, coins)
		VALUES (?, ?, ?, ?)
	`, event.UserID, event.VotedAt.Unix(), boolToInt(event.IsWeekend), event.Coins)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ListVoteEvents(ctx context.Context, userID string, limit, offset int) ([]VoteEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, voted_at, is_weekend, coins
		FROM vote_events
		WHERE user_id = ?
		ORDER BY voted_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []VoteEvent
	for rows.Next() {
		var event VoteEvent
		var votedAt int64
		var weekend int
		if err := rows.Scan(&event.ID, &event.UserID, &votedAt, &weekend, &event.Coins); err != nil {
			return nil, err
		}
		event.VotedAt = time.Unix(votedAt, 0)
		event.IsWeekend = weekend == 1
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) CountVoteEvents(ctx context.Context, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_events WHERE user_id = ?`, userID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) TopVoters(ctx context.Context, limit int) ([]Voter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, vote_streak, last_vote, total_votes, total_coins
		FROM vote_users
		ORDER BY total_votes DESC, vote_streak DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var voters []Voter
	for rows.Next() {
		var v Voter
		var lastVote int64
		if err := rows.Scan(&v.UserID, &v.VoteStreak, &lastVote, &v.TotalVotes, &v.TotalCoins); err != nil {
			return nil, err
		}
		v.LastVote = time.Unix(lastVote, 0)
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

func (s *Store) AddGlobalStat(ctx context.Context, key string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_stats (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value
	`, key, delta)
	return err
}

func (s *Store) GetGlobalStat(ctx context.Context, key string) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM global_stats WHERE key = ?`, key)
	var value int
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return value, nil
}

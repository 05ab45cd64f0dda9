// Package report implements the eligibility and rate-limit gate in front of
// the user/message report modal. Reports themselves are never persisted; a
// report is rendered and routed, then forgotten.
package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"warden/internal/settings"
)

const cooldownWindow = 10 * time.Second

var (
	ErrNoReportsChannel = errors.New("no reports channel configured")
	ErrSelfReport       = errors.New("reporting yourself is disabled here")
	ErrBotReport        = errors.New("reporting bots is disabled here")
	ErrAdminReport      = errors.New("reporting administrators is disabled here")
)

// CooldownError carries how long the reporter still has to wait.
type CooldownError struct {
	Remaining time.Duration
}

func (e CooldownError) Error() string {
	return fmt.Sprintf("report cooldown: wait %.0fs", e.Remaining.Seconds())
}

// Target is the subject of a report: a user, or a message via its author.
type Target struct {
	UserID  string
	IsBot   bool
	IsAdmin bool
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Checker struct {
	mu       sync.Mutex
	clock    Clock
	lastSeen map[string]time.Time
}

func NewChecker() *Checker {
	return &Checker{
		clock:    realClock{},
		lastSeen: make(map[string]time.Time),
	}
}

func (c *Checker) WithClock(clock Clock) {
	c.clock = clock
}

// Check runs the gate in order: channel configured, cooldown, then the
// per-guild eligibility toggles. The first failing rule wins so the reporter
// gets one specific denial.
func (c *Checker) Check(guild settings.Guild, reporterID string, target Target) error {
	if guild.ReportsChannel == "" {
		return ErrNoReportsChannel
	}

	c.mu.Lock()
	last, seen := c.lastSeen[reporterID]
	now := c.clock.Now()
	c.mu.Unlock()
	if seen {
		if elapsed := now.Sub(last); elapsed < cooldownWindow {
			return CooldownError{Remaining: cooldownWindow - elapsed}
		}
	}

	if target.UserID == reporterID && !guild.ReportSelf {
		return ErrSelfReport
	}
	if target.IsBot && !guild.ReportBots {
		return ErrBotReport
	}
	if target.IsAdmin && !guild.ReportAdmins {
		return ErrAdminReport
	}
	return nil
}

// MarkReported stamps the reporter's cooldown. Called after a successful
// modal submission, not when the modal is merely opened.
func (c *Checker) MarkReported(reporterID string) {
	c.mu.Lock()
	c.lastSeen[reporterID] = c.clock.Now()
	c.mu.Unlock()
}

package bot

import (
	"testing"
	"time"

	"warden/internal/auditlog"
	"warden/internal/report"

	"github.com/stretchr/testify/assert"
)

func TestCustomIDRoundTrip(t *testing.T) {
	id := customID("votes", "history", "u1", "3")
	assert.Equal(t, "votes:history:u1:3", id)
	assert.Equal(t, []string{"votes", "history", "u1", "3"}, splitCustomID(id))
}

func TestDenialMessages(t *testing.T) {
	assert.Contains(t, denialMessage(report.ErrNoReportsChannel), "no reports channel")
	assert.Contains(t, denialMessage(report.ErrSelfReport), "yourself")
	assert.Contains(t, denialMessage(report.ErrBotReport), "bots")
	assert.Contains(t, denialMessage(report.ErrAdminReport), "administrators")
	assert.Contains(t, denialMessage(report.CooldownError{Remaining: 7 * time.Second}), "7 seconds")
}

func TestDescribeAttribution(t *testing.T) {
	assert.Equal(t, "<@mod1>", describeAttribution(auditlog.Attribution{ActorID: "mod1", Confidence: auditlog.ConfidenceModerator}))
	assert.Equal(t, "<@mod2>", describeAttribution(auditlog.Attribution{ActorID: "mod2", Confidence: auditlog.ConfidenceBatched}))
	assert.Equal(t, "the author or a bot", describeAttribution(auditlog.Attribution{Confidence: auditlog.ConfidenceSelfOrBot}))
}

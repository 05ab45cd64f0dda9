package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestReportEvidenceStash(t *testing.T) {
	evidence := newReportEvidence()

	assert.Empty(t, evidence.take("u1"), "empty stash yields nothing")

	evidence.put("u1", "")
	assert.Empty(t, evidence.take("u1"), "blank URLs are not stored")

	evidence.put("u1", "https://cdn.example/proof.png")
	assert.Equal(t, "https://cdn.example/proof.png", evidence.take("u1"))
	assert.Empty(t, evidence.take("u1"), "take consumes the entry")
}

func TestReportImageURL(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "u2"},
			{Name: "image", Type: discordgo.ApplicationCommandOptionAttachment, Value: "a1"},
		},
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Attachments: map[string]*discordgo.MessageAttachment{
				"a1": {URL: "https://cdn.example/proof.png"},
			},
		},
	}
	assert.Equal(t, "https://cdn.example/proof.png", reportImageURL(data))

	data.Resolved = nil
	assert.Empty(t, reportImageURL(data))

	assert.Empty(t, reportImageURL(discordgo.ApplicationCommandInteractionData{}))
}

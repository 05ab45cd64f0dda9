package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
)

// DeliveryResult classifies the outcome of a best-effort platform call so
// callers can tell "already done" and "not allowed" apart from real failures.
type DeliveryResult int

const (
	DeliveryOk DeliveryResult = iota
	// DeliveryAlreadyGone: the target no longer exists, usually because a
	// user or another bot got there first. Not an error worth logging.
	DeliveryAlreadyGone
	// DeliveryForbidden: the bot lacks permission. The action is skipped and
	// the rest of the pipeline continues.
	DeliveryForbidden
	DeliveryFailed
)

func classifyDelivery(err error) DeliveryResult {
	if err == nil {
		return DeliveryOk
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return DeliveryAlreadyGone
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess, discordgo.ErrCodeCannotSendMessagesToThisUser:
			return DeliveryForbidden
		}
	}
	return DeliveryFailed
}

func (r DeliveryResult) String() string {
	switch r {
	case DeliveryOk:
		return "ok"
	case DeliveryAlreadyGone:
		return "already_gone"
	case DeliveryForbidden:
		return "forbidden"
	default:
		return "failed"
	}
}

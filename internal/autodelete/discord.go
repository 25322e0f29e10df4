package autodelete

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// KeepButtonID is the custom ID of the button that cancels a pending deletion.
const KeepButtonID = "autodelete:keep"

// DiscordDeleter deletes messages through a Discord session.
type DiscordDeleter struct {
	session *discordgo.Session
}

// NewDiscordDeleter creates a new DiscordDeleter.
func NewDiscordDeleter(session *discordgo.Session) *DiscordDeleter {
	return &DiscordDeleter{session: session}
}

// DeleteMessage deletes a message from the channel.
func (d *DiscordDeleter) DeleteMessage(channelID, messageID snowflake.ID) error {
	return d.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// KeepButton returns the "Keep" button, for replies that carry other buttons.
func KeepButton() discordgo.Button {
	return discordgo.Button{
		Label:    "Keep",
		Style:    discordgo.SecondaryButton,
		CustomID: KeepButtonID,
	}
}

// KeepComponents returns a message action row holding the "Keep" button.
func KeepComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{KeepButton()},
		},
	}
}

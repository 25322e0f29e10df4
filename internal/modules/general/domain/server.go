package domain

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// ErrServerNotFound is returned for guilds the bot is not in.
var ErrServerNotFound = errors.New("server not found")

// ServerInfo summarizes a guild for the dashboard.
type ServerInfo struct {
	ID                snowflake.ID
	Name              string
	Description       string
	IconURL           string
	BannerURL         string
	OwnerID           snowflake.ID
	CreatedAt         time.Time
	Locale            string
	Features          []string
	MemberCount       int
	ChannelCount      int
	RoleCount         int
	EmojiCount        int
	BoostTier         int
	BoostCount        int
	VerificationLevel int
	AFKTimeout        time.Duration
	AFKChannel        string
	SystemChannel     string
	RulesChannel      string
}

// ServerChannel is one channel of a guild.
type ServerChannel struct {
	ID               snowflake.ID
	Name             string
	Type             string
	Position         int
	ParentID         snowflake.ID
	Topic            string
	NSFW             bool
	RateLimitPerUser int
}

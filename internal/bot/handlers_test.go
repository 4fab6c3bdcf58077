package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestPickWelcomeChannel(t *testing.T) {
	guild := &discordgo.Guild{
		SystemChannelID: "sys",
		Channels: []*discordgo.Channel{
			{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
			{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 1},
			{ID: "announcements", Type: discordgo.ChannelTypeGuildText, Position: 0},
		},
	}
	sendAnywhere := func(string) bool { return true }

	if got := pickWelcomeChannel(guild, sendAnywhere); got != "sys" {
		t.Fatalf("expected system channel preferred, got %q", got)
	}

	// Without a system channel the first writable text channel wins, in
	// position order.
	guild.SystemChannelID = ""
	if got := pickWelcomeChannel(guild, sendAnywhere); got != "announcements" {
		t.Fatalf("expected first text channel by position, got %q", got)
	}

	onlyGeneral := func(channelID string) bool { return channelID == "general" }
	if got := pickWelcomeChannel(guild, onlyGeneral); got != "general" {
		t.Fatalf("expected first writable channel, got %q", got)
	}

	// An unwritable system channel falls through to the scan.
	guild.SystemChannelID = "sys"
	if got := pickWelcomeChannel(guild, onlyGeneral); got != "general" {
		t.Fatalf("expected fallback past unwritable system channel, got %q", got)
	}

	if got := pickWelcomeChannel(guild, func(string) bool { return false }); got != "" {
		t.Fatalf("expected empty when nothing writable, got %q", got)
	}
}

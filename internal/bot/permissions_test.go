package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "admin", Position: 10},
			{ID: "mod", Position: 5},
			{ID: "member", Position: 1},
		},
	}
}

func TestCanModerateSelf(t *testing.T) {
	ok, _ := canModerate(testGuild(), "u1", []string{"mod"}, "u1", []string{"mod"})
	if ok {
		t.Fatal("expected self-moderation denied")
	}
}

func TestCanModerateOwnerTarget(t *testing.T) {
	ok, _ := canModerate(testGuild(), "u1", []string{"admin"}, "owner", nil)
	if ok {
		t.Fatal("expected owner target denied")
	}
}

func TestCanModerateOwnerInvoker(t *testing.T) {
	ok, _ := canModerate(testGuild(), "owner", nil, "u2", []string{"admin"})
	if !ok {
		t.Fatal("expected owner to outrank everyone")
	}
}

func TestCanModerateHierarchy(t *testing.T) {
	guild := testGuild()

	if ok, _ := canModerate(guild, "u1", []string{"mod"}, "u2", []string{"member"}); !ok {
		t.Fatal("expected mod to outrank member")
	}
	if ok, _ := canModerate(guild, "u1", []string{"mod"}, "u2", []string{"admin"}); ok {
		t.Fatal("expected mod denied against admin")
	}
	// Equal highest role is not strictly above.
	if ok, _ := canModerate(guild, "u1", []string{"mod"}, "u2", []string{"mod"}); ok {
		t.Fatal("expected equal rank denied")
	}
	// A roleless target is below anyone with a role.
	if ok, _ := canModerate(guild, "u1", []string{"member"}, "u2", nil); !ok {
		t.Fatal("expected roleless target below member role")
	}
}

func TestHighestRolePositionIgnoresUnknownRoles(t *testing.T) {
	guild := testGuild()
	if got := highestRolePosition(guild.Roles, []string{"deleted-role"}); got != -1 {
		t.Fatalf("expected -1 for unknown roles, got %d", got)
	}
	if got := highestRolePosition(guild.Roles, []string{"member", "admin"}); got != 10 {
		t.Fatalf("expected highest position 10, got %d", got)
	}
}

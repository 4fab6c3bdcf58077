package bot

import "github.com/bwmarrin/discordgo"

// highestRolePosition returns the top role position among the member's
// roles. Members with no roles beyond @everyone sit at -1.
func highestRolePosition(guildRoles []*discordgo.Role, memberRoles []string) int {
	positions := make(map[string]int, len(guildRoles))
	for _, role := range guildRoles {
		positions[role.ID] = role.Position
	}
	highest := -1
	for _, id := range memberRoles {
		if position, ok := positions[id]; ok && position > highest {
			highest = position
		}
	}
	return highest
}

// canModerate reports whether the invoker may act on the target under
// guild role hierarchy. Nobody moderates themselves or the owner; the
// owner outranks everyone else; otherwise the invoker's highest role
// must sit strictly above the target's.
func canModerate(guild *discordgo.Guild, invokerID string, invokerRoles []string, targetID string, targetRoles []string) (bool, string) {
	switch {
	case invokerID == targetID:
		return false, "You cannot moderate yourself."
	case targetID == guild.OwnerID:
		return false, "You cannot moderate the server owner."
	case invokerID == guild.OwnerID:
		return true, ""
	}
	if highestRolePosition(guild.Roles, invokerRoles) <= highestRolePosition(guild.Roles, targetRoles) {
		return false, "That member is not below you in the role hierarchy."
	}
	return true, ""
}

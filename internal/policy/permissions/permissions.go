package permissions

import "github.com/iamwavecut/wafflebot/internal/bot"

// IsManager reports whether the member may configure the bot for the chat.
func IsManager(member *bot.ChatMember) bool {
	if member == nil {
		return false
	}
	if member.IsCreator() {
		return true
	}
	return member.IsAdministrator() && (member.CanManageChat || member.CanPromoteMembers)
}

// CanRestrict is required for the moderation commands.
func CanRestrict(member *bot.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || (member.IsAdministrator() && member.CanRestrictMembers)
}

func IsAdmin(member *bot.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

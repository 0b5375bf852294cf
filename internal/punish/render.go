package punish

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

// Vars are the values substituted into %%__token__%% placeholders.
type Vars struct {
	UserID    int64
	FirstName string
	Duration  string
	Reason    string
	ChatID    int64
	ChatTitle string
	MessageID int
	WarnCount int
	MaxWarns  int
}

func Mention(userID int64, name string) string {
	return fmt.Sprintf("<a href='tg://user?id=%d'>%s</a>", userID, html.EscapeString(name))
}

// MessageLink builds a t.me/c link for supergroup messages.
func MessageLink(chatID int64, messageID int) string {
	id := strings.TrimPrefix(strconv.FormatInt(chatID, 10), "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
}

// Render applies plain replacements in a fixed order; unknown tokens stay.
func Render(template string, v Vars) string {
	replacements := []struct{ token, value string }{
		{"%%__mention__%%", Mention(v.UserID, v.FirstName)},
		{"%%__duration__%%", html.EscapeString(v.Duration)},
		{"%%__reason__%%", html.EscapeString(v.Reason)},
		{"%%__chat_title__%%", html.EscapeString(v.ChatTitle)},
		{"%%__message_link__%%", MessageLink(v.ChatID, v.MessageID)},
		{"%%__full_name__%%", html.EscapeString(v.FirstName)},
		{"%%__user_id__%%", strconv.FormatInt(v.UserID, 10)},
		{"%%__warn_count__%%", strconv.Itoa(v.WarnCount)},
		{"%%__max_warns__%%", strconv.Itoa(v.MaxWarns)},
	}
	for _, r := range replacements {
		template = strings.ReplaceAll(template, r.token, r.value)
	}
	return template
}

// FormatButtons parses "text - url && text - url" lines into a URL keyboard.
func FormatButtons(input string) (bot.Keyboard, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, false
	}

	var keyboard bot.Keyboard
	for _, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var row []bot.Button
		for _, raw := range strings.Split(line, " && ") {
			text, url, found := strings.Cut(strings.TrimSpace(raw), " - ")
			text, url = strings.TrimSpace(text), strings.TrimSpace(url)
			if !found || text == "" || url == "" {
				return nil, false
			}
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				url = "http://" + url
			}
			row = append(row, bot.NewButtonURL(text, url))
		}
		if len(row) > 0 {
			keyboard = append(keyboard, row)
		}
	}
	return keyboard, len(keyboard) > 0
}

package filters

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

// identity is something an exception entry can name: a user or a chat.
type identity struct {
	id       int64
	username string
}

func userIdentity(u *bot.User) identity {
	if u == nil {
		return identity{}
	}
	return identity{id: u.ID, username: u.UserName}
}

func chatIdentity(c *bot.Chat) identity {
	if c == nil {
		return identity{}
	}
	return identity{id: c.ID, username: c.UserName}
}

// NormalizeException reduces "@name", "t.me/name" and "https://t.me/name" to "name".
func NormalizeException(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "@")
	return strings.TrimSuffix(s, "/")
}

func excepted(exceptions []string, ids ...identity) bool {
	for _, raw := range exceptions {
		exc := NormalizeException(raw)
		if exc == "" {
			continue
		}
		for _, id := range ids {
			if id.id != 0 && exc == strconv.FormatInt(id.id, 10) {
				return true
			}
			if id.username != "" && exc == strings.ToLower(id.username) {
				return true
			}
		}
	}
	return false
}

// domainExcepted matches a URL host against domain exceptions, subdomains included.
func domainExcepted(exceptions []string, rawURL string) bool {
	link := rawURL
	if !strings.Contains(link, "://") {
		link = "http://" + link
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, raw := range exceptions {
		exc := strings.ToLower(strings.TrimSpace(raw))
		exc = strings.TrimPrefix(exc, "https://")
		exc = strings.TrimPrefix(exc, "http://")
		exc = strings.TrimPrefix(exc, "www.")
		exc = strings.TrimSuffix(exc, "/")
		if exc == "" {
			continue
		}
		if host == exc || strings.HasSuffix(host, "."+exc) {
			return true
		}
	}
	return false
}

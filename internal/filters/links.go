package filters

import (
	"context"
	"regexp"
	"strings"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/i18n"
)

var (
	telegramLinkRe = regexp.MustCompile(`(?i)^(?:https?://)?(?:[\w-]+\.)?t(?:elegram)?\.me/`)
	usernameRe     = regexp.MustCompile(`^@\w{4,}$`)
	botUsernameRe  = regexp.MustCompile(`^@\w{4,}bot$`)
)

func urlEntities(msg *bot.Message) []string {
	var urls []string
	for _, e := range msg.AllEntities() {
		if e.Type == bot.EntityURL {
			urls = append(urls, e.Text)
		}
	}
	return urls
}

// linkTarget extracts the username a t.me link points to.
func linkTarget(link string) string {
	rest := telegramLinkRe.ReplaceAllString(link, "")
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

type TLinks struct {
	enforcer
	settings Settings[db.TLinks]
}

func NewTLinks(settings Settings[db.TLinks], deleter bot.Deleter, punisher Punisher) *TLinks {
	return &TLinks{
		enforcer: enforcer{deleter: deleter, punisher: punisher},
		settings: settings,
	}
}

func (f *TLinks) Name() string { return "tlinks" }

// Violation names the kind of Telegram link found in the message, if any.
func (f *TLinks) Violation(cfg db.TLinks, msg *bot.Message) string {
	for _, link := range urlEntities(msg) {
		if !telegramLinkRe.MatchString(link) {
			continue
		}
		if t := linkTarget(link); t != "" && excepted(cfg.Exceptions, identity{username: t}) {
			continue
		}
		return "t.me link"
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || excepted(cfg.Exceptions, identity{username: strings.TrimPrefix(text, "@")}) {
		return ""
	}
	if cfg.Username && usernameRe.MatchString(text) {
		return "username"
	}
	if cfg.Bot && botUsernameRe.MatchString(text) {
		return "bot username"
	}
	return ""
}

func (f *TLinks) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	cfg := f.settings.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable || excepted(cfg.Exceptions, userIdentity(msg.From)) {
		return false, nil
	}
	kind := f.Violation(cfg, msg)
	if kind == "" {
		return false, nil
	}
	f.enforce(ctx, msg, cfg.Punishment, i18n.Getf("Telegram links (%s)", "", i18n.Get(kind, "")))
	return true, nil
}

// Links punishes any URL in a message. Exceptions are domains or senders.
type Links struct {
	enforcer
	settings Settings[db.Links]
}

func NewLinks(settings Settings[db.Links], deleter bot.Deleter, punisher Punisher) *Links {
	return &Links{
		enforcer: enforcer{deleter: deleter, punisher: punisher},
		settings: settings,
	}
}

func (f *Links) Name() string { return "links" }

func (f *Links) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	cfg := f.settings.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable || excepted(cfg.Exceptions, userIdentity(msg.From)) {
		return false, nil
	}
	found := false
	for _, link := range urlEntities(msg) {
		if !domainExcepted(cfg.Exceptions, link) {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	f.enforce(ctx, msg, cfg.Punishment, i18n.Get("Links in the message", ""))
	return true, nil
}

package handlers

import (
	"strings"

	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/settings"
)

var moderationCommands = []db.Category{db.CategoryWarn, db.CategoryMute, db.CategoryBan, db.CategoryKick}

// catalog maps every editable page to its form, in home page order.
type catalog struct {
	order  []page
	titles map[page]string
	forms  map[page]form
}

func (c *catalog) add(p page, title string, f form) {
	c.order = append(c.order, p)
	c.titles[p] = title
	c.forms[p] = f
}

func newCatalog(s *settings.Store) *catalog {
	c := &catalog{titles: map[page]string{}, forms: map[page]form{}}

	c.add(db.FeatureAntiflood, "Anti-flood", formOf[db.Antiflood](s.Antiflood, nil, append([]entry[db.Antiflood]{
		with(fieldEnable, toggle("Enabled", func(v *db.Antiflood) *bool { return &v.Enable })),
		with(fieldMessages, number("Messages limit", func(v *db.Antiflood) *int { return &v.Messages }, 2, 50)),
		with(fieldTime, number("Time window", func(v *db.Antiflood) *int { return &v.Time }, 1, 3600)),
	}, punishment(func(v *db.Antiflood) *db.Punishment { return &v.Punishment })...)...))

	c.add(db.FeatureTLinks, "Telegram links", formOf[db.TLinks](s.TLinks, nil, append([]entry[db.TLinks]{
		with(fieldEnable, toggle("Enabled", func(v *db.TLinks) *bool { return &v.Enable })),
		with(fieldUsername, toggle("Usernames", func(v *db.TLinks) *bool { return &v.Username })),
		with(fieldBot, toggle("Bot usernames", func(v *db.TLinks) *bool { return &v.Bot })),
		with(fieldExceptions, exceptions(func(v *db.TLinks) *[]string { return &v.Exceptions })),
	}, punishment(func(v *db.TLinks) *db.Punishment { return &v.Punishment })...)...))

	for _, p := range []struct {
		page  page
		title string
		repo  *settings.Repository[db.OriginPolicy]
	}{
		{db.FeatureForward, "Forwards", s.Forward},
		{db.FeatureQuotes, "Quotes", s.Quotes},
	} {
		c.add(p.page, p.title, formOf[db.OriginPolicy](p.repo, db.OriginCategories, append([]entry[db.OriginPolicy]{
			with(fieldEnable, toggle("Enabled", func(v *db.OriginPolicy) *bool { return &v.Enable })),
			with(fieldExceptions, exceptions(func(v *db.OriginPolicy) *[]string { return &v.Exceptions })),
		}, punishment(func(v *db.OriginPolicy) *db.Punishment { return &v.Punishment })...)...))
	}

	c.add(db.FeatureLinks, "Links", formOf[db.Links](s.Links, nil, append([]entry[db.Links]{
		with(fieldEnable, toggle("Enabled", func(v *db.Links) *bool { return &v.Enable })),
		with(fieldExceptions, list("Exceptions", "Allowed domains separated by spaces or commas. Send - to clear.",
			func(v *db.Links) *[]string { return &v.Exceptions }, normalizeDomain)),
	}, punishment(func(v *db.Links) *db.Punishment { return &v.Punishment })...)...))

	c.add(db.FeatureBlocks, "Media blocklist", formOf[db.Blocks](s.Blocks, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Blocks) *bool { return &v.Enable })),
		with(fieldStickers, list("Stickers", "Sticker file ids separated by spaces. Send - to clear.",
			func(v *db.Blocks) *[]string { return &v.Stickers }, strings.TrimSpace)),
		with(fieldStickerSets, list("Sticker sets", "Sticker set names separated by spaces. Send - to clear.",
			func(v *db.Blocks) *[]string { return &v.StickerSets }, strings.TrimSpace)),
		with(fieldGifs, list("GIFs", "Animation file ids separated by spaces. Send - to clear.",
			func(v *db.Blocks) *[]string { return &v.Gifs }, strings.TrimSpace)),
		with(fieldJournal, toggle("Journal", func(v *db.Blocks) *bool { return &v.Journal })),
	))

	c.add(db.FeatureNSFW, "NSFW", formOf[db.NSFW](s.NSFW, nil, append([]entry[db.NSFW]{
		with(fieldEnable, toggle("Enabled", func(v *db.NSFW) *bool { return &v.Enable })),
		with(fieldPercent, number("Percent", func(v *db.NSFW) *int { return &v.Percent }, 0, 100)),
		with(fieldText, text("Text", func(v *db.NSFW) *string { return &v.Text })),
	}, punishment(func(v *db.NSFW) *db.Punishment { return &v.Punishment })...)...))

	c.add(db.FeatureWarns, "Warnings", formOf[db.Warns](s.Warns, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Warns) *bool { return &v.Enable })),
		with(fieldWarnsCount, number("Warnings limit", func(v *db.Warns) *int { return &v.WarnsCount }, 1, 20)),
		with(fieldAction, cycleAction(func(v *db.Warns) *db.Action { return &v.Action })),
		with(fieldDuration, durationPrompt(func(v *db.Warns) *string { return &v.Duration })),
		with(fieldText, text("Text", func(v *db.Warns) *string { return &v.Text })),
	))

	c.add(db.FeatureMeeting, "Welcome", formOf[db.Meeting](s.Meeting, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Meeting) *bool { return &v.Enable })),
		with(fieldAlwaysSend, toggle("Greet every join", func(v *db.Meeting) *bool { return &v.AlwaysSend })),
		with(fieldDeleteLast, toggle("Delete previous greeting", func(v *db.Meeting) *bool { return &v.DeleteLastMessage })),
		with(fieldText, text("Text", func(v *db.Meeting) *string { return &v.Text })),
		with(fieldMedia, mediaLink(func(v *db.Meeting) *string { return &v.MediaLink })),
		with(fieldButtons, buttons(func(v *db.Meeting) *string { return &v.Buttons })),
	))

	c.add(db.FeatureCaptcha, "Captcha", formOf[db.Captcha](s.Captcha, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Captcha) *bool { return &v.Enable })),
	))

	c.add(db.FeatureModeration, "Moderation commands", formOf[db.Moderation](s.Moderation, moderationCommands,
		with(fieldEnable, toggle("Enabled", func(v *db.Moderation) *bool { return &v.Enable })),
		with(fieldDelete, toggle("Delete message", func(v *db.Moderation) *bool { return &v.DeleteMessage })),
		with(fieldJournal, toggle("Journal", func(v *db.Moderation) *bool { return &v.Journal })),
		with(fieldText, text("Text", func(v *db.Moderation) *string { return &v.Text })),
	))

	c.add(db.FeatureReports, "Reports", formOf[db.Reports](s.Reports, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Reports) *bool { return &v.Enable })),
		with(fieldDelete, toggle("Delete message", func(v *db.Reports) *bool { return &v.DeleteMessage })),
		with(fieldText, text("Text", func(v *db.Reports) *string { return &v.Text })),
	))

	c.add(db.FeatureRules, "Rules", formOf[db.Rules](s.Rules, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.Rules) *bool { return &v.Enable })),
		with(fieldPermissions, audience(func(v *db.Rules) *string { return &v.Permissions })),
		with(fieldText, text("Text", func(v *db.Rules) *string { return &v.Text })),
		with(fieldButtons, buttons(func(v *db.Rules) *string { return &v.Buttons })),
	))

	c.add(db.FeatureBlockChannels, "Block channels", formOf[db.BlockChannels](s.BlockChannels, nil,
		with(fieldEnable, toggle("Enabled", func(v *db.BlockChannels) *bool { return &v.Enable })),
		with(fieldText, text("Text", func(v *db.BlockChannels) *string { return &v.Text })),
	))

	return c
}

// normalizeDomain reduces "https://www.example.com/path" to "example.com".
func normalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	host, _, _ := strings.Cut(s, "/")
	return host
}

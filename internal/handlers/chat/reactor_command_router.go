package handlers

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/duration"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

const forever = "forever"

var (
	ErrTargetResolution = errors.New("target resolution")

	errNoTarget      = fmt.Errorf("%w: no target", ErrTargetResolution)
	errUnknownTarget = fmt.Errorf("%w: unknown user", ErrTargetResolution)

	targetTokenRe   = regexp.MustCompile(`^(?:@\w+|\d+)$`)
	durationTokenRe = regexp.MustCompile(`(?i)^\d+[smhdwy]$`)
)

type (
	command struct {
		name string
		args []string
	}

	// moderationArgs is "[@username|id] [duration] [reason...]".
	moderationArgs struct {
		Target   string
		Duration string
		Reason   string
	}
)

// parseCommand accepts "/name" and "/name@bot" addressed to this bot.
func parseCommand(msg *bot.Message, botName string) (command, bool) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return command{}, false
	}
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if n, mention, found := strings.Cut(name, "@"); found {
		if botName != "" && !strings.EqualFold(mention, botName) {
			return command{}, false
		}
		name = n
	}
	if name == "" {
		return command{}, false
	}
	return command{name: strings.ToLower(name), args: fields[1:]}, true
}

func parseModerationArgs(args []string, withDuration bool) moderationArgs {
	var res moderationArgs
	if len(args) > 0 && targetTokenRe.MatchString(args[0]) {
		res.Target, args = args[0], args[1:]
	}
	if withDuration && len(args) > 0 && durationTokenRe.MatchString(args[0]) {
		res.Duration, args = args[0], args[1:]
	}
	res.Reason = strings.Join(args, " ")
	return res
}

func (r *Reactor) handleCommand(ctx context.Context, msg *bot.Message, cmd command) (bool, error) {
	switch cmd.name {
	case "report":
		return true, r.reportCommand(ctx, msg)
	case "rules":
		return true, r.rulesCommand(ctx, msg)
	case "warn", "unwarn", "mute", "unmute", "ban", "unban", "kick":
	default:
		return false, nil
	}

	if !r.canModerate(ctx, msg) {
		return false, nil
	}

	switch cmd.name {
	case "warn":
		return true, r.warnCommand(ctx, msg, cmd)
	case "unwarn":
		return true, r.unwarnCommand(ctx, msg, cmd)
	case "mute":
		return true, r.punishCommand(ctx, msg, cmd, db.ActionMute, db.CategoryMute)
	case "ban":
		return true, r.punishCommand(ctx, msg, cmd, db.ActionBan, db.CategoryBan)
	case "kick":
		return true, r.punishCommand(ctx, msg, cmd, db.ActionKick, db.CategoryKick)
	case "unmute":
		return true, r.liftCommand(ctx, msg, cmd, db.ActionMute)
	case "unban":
		return true, r.liftCommand(ctx, msg, cmd, db.ActionBan)
	}
	return false, nil
}

// canModerate requires the creator or an administrator with restrict rights.
func (r *Reactor) canModerate(ctx context.Context, msg *bot.Message) bool {
	if msg.From == nil {
		return false
	}
	member, err := r.admins.Member(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		r.getLogEntry().WithField("chat_id", msg.Chat.ID).WithError(err).Warn("cant check moderator rights")
		return false
	}
	return permissions.CanRestrict(member)
}

// resolveTarget picks the explicit @username or id, falling back to the replied message author.
func (r *Reactor) resolveTarget(ctx context.Context, msg *bot.Message, token string) (punish.Target, error) {
	t := punish.Target{ChatID: msg.Chat.ID, ChatTitle: msg.Chat.Title}
	switch {
	case strings.HasPrefix(token, "@"):
		u, err := r.registry.GetUserByUsername(ctx, token)
		if err != nil {
			return t, err
		}
		if u == nil {
			return t, errors.Wrap(errUnknownTarget, token)
		}
		t.UserID, t.FirstName = u.ID, u.FullName()
	case token != "":
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil || id <= 0 {
			return t, errors.Wrap(errUnknownTarget, token)
		}
		t.UserID, t.FirstName = id, i18n.Get("user", "")
		if u, err := r.registry.GetUser(ctx, id); err == nil && u != nil && u.FullName() != "" {
			t.FirstName = u.FullName()
		}
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil:
		from := msg.ReplyToMessage.From
		t.UserID, t.FirstName = from.ID, from.FullName()
	default:
		return t, errNoTarget
	}
	return t, nil
}

func targetErrorText(err error) string {
	switch {
	case errors.Is(err, errNoTarget):
		return i18n.Get("Error: specify a username or ID if the command is not a reply to a message.", "")
	case errors.Is(err, errUnknownTarget):
		return i18n.Get("Could not resolve the user. Specify a valid user_id or username.", "")
	}
	return errorText(err)
}

func errorText(err error) string {
	return i18n.Getf("An error occurred: %s", "", html.EscapeString(err.Error()))
}

func (r *Reactor) reply(ctx context.Context, msg *bot.Message, text string, keyboard bot.Keyboard) {
	out := bot.HTML(msg.Chat.ID, text)
	out.ReplyTo = msg.MessageID
	out.Keyboard = keyboard
	if _, err := r.gateway.SendMessage(ctx, out); err != nil {
		r.getLogEntry().WithField("chat_id", msg.Chat.ID).WithError(err).Warn("cant send reply")
	}
}

func (r *Reactor) record(enabled bool, t punish.Target, action db.Action, reason, outcome string) {
	if !enabled || r.journal == nil {
		return
	}
	r.journal.Enqueue(event.NewModeration(event.Moderation{
		ChatID:    t.ChatID,
		ChatTitle: t.ChatTitle,
		UserID:    t.UserID,
		UserName:  t.FirstName,
		Action:    string(action),
		Reason:    reason,
		Outcome:   outcome,
	}))
}

func (r *Reactor) deleteReplied(ctx context.Context, msg *bot.Message) {
	if msg.ReplyToMessage != nil {
		bot.TryDelete(ctx, r.gateway, msg.Chat.ID, msg.ReplyToMessage.MessageID)
	}
}

// punishCommand handles /mute, /ban and /kick.
func (r *Reactor) punishCommand(ctx context.Context, msg *bot.Message, cmd command, action db.Action, category db.Category) error {
	cfg := r.features.Moderation.Get(ctx, msg.Chat.ID, category)
	if !cfg.Enable {
		return nil
	}

	args := parseModerationArgs(cmd.args, action != db.ActionKick)
	target, err := r.resolveTarget(ctx, msg, args.Target)
	if err != nil {
		r.reply(ctx, msg, targetErrorText(err), nil)
		return nil
	}
	if cfg.DeleteMessage {
		r.deleteReplied(ctx, msg)
	}

	token := args.Duration
	if token == "" {
		token = forever
	}
	out := r.enforcer.Apply(ctx, target, action, token)
	if !out.OK() {
		r.reply(ctx, msg, errorText(out.Err), nil)
		return nil
	}

	reason := args.Reason
	if reason == "" {
		reason = i18n.Get("Not specified.", "")
	}
	text := punish.Render(cfg.Text, punish.Vars{
		UserID:    target.UserID,
		FirstName: target.FirstName,
		Duration:  duration.FormatHuman(token),
		Reason:    reason,
		ChatID:    target.ChatID,
		ChatTitle: target.ChatTitle,
		MessageID: msg.MessageID,
	})
	r.reply(ctx, msg, text, punish.Keyboard(action, target.ChatID, target.UserID))
	r.record(cfg.Journal, target, action, reason, out.Text)
	return nil
}

func (r *Reactor) warnCommand(ctx context.Context, msg *bot.Message, cmd command) error {
	mod := r.features.Moderation.Get(ctx, msg.Chat.ID, db.CategoryWarn)
	if !mod.Enable {
		return nil
	}
	cfg := r.features.Warns.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable {
		r.reply(ctx, msg, i18n.Get("⚠️ Warnings are disabled in this chat.", ""), nil)
		return nil
	}

	args := parseModerationArgs(cmd.args, false)
	target, err := r.resolveTarget(ctx, msg, args.Target)
	if err != nil {
		if errors.Is(err, ErrTargetResolution) {
			r.reply(ctx, msg, i18n.Get("❌ Could not resolve the user to warn.", ""), nil)
			return nil
		}
		r.reply(ctx, msg, errorText(err), nil)
		return nil
	}
	if mod.DeleteMessage {
		r.deleteReplied(ctx, msg)
	}

	out := r.enforcer.Apply(ctx, target, db.ActionWarn, "")
	if !out.OK() {
		r.reply(ctx, msg, errorText(out.Err), nil)
		return nil
	}
	reason := args.Reason
	if reason == "" {
		reason = i18n.Get("No reason", "")
	}
	r.record(mod.Journal, target, db.ActionWarn, reason, out.Text)
	if out.Escalated {
		return nil
	}

	text := punish.Render(cfg.Text, punish.Vars{
		UserID:    target.UserID,
		FirstName: target.FirstName,
		Reason:    reason,
		ChatID:    target.ChatID,
		ChatTitle: target.ChatTitle,
		MessageID: msg.MessageID,
		WarnCount: out.Warns,
		MaxWarns:  out.MaxWarns,
	})
	r.reply(ctx, msg, text, punish.Keyboard(db.ActionWarn, target.ChatID, target.UserID))
	return nil
}

func (r *Reactor) unwarnCommand(ctx context.Context, msg *bot.Message, cmd command) error {
	args := parseModerationArgs(cmd.args, false)
	target, err := r.resolveTarget(ctx, msg, args.Target)
	if err != nil {
		r.reply(ctx, msg, targetErrorText(err), nil)
		return nil
	}
	if _, err := r.warns.Reset(ctx, target.ChatID, target.UserID); err != nil {
		r.reply(ctx, msg, errorText(err), nil)
		return nil
	}
	r.reply(ctx, msg, i18n.Getf("✅ Warnings reset for %s", "", punish.Mention(target.UserID, target.FirstName)), nil)
	return nil
}

// liftCommand handles /unmute and /unban.
func (r *Reactor) liftCommand(ctx context.Context, msg *bot.Message, cmd command, action db.Action) error {
	args := parseModerationArgs(cmd.args, false)
	target, err := r.resolveTarget(ctx, msg, args.Target)
	if err != nil {
		text := targetErrorText(err)
		if errors.Is(err, errNoTarget) {
			text = i18n.Get("Please specify a user to unmute.", "")
			if action == db.ActionBan {
				text = i18n.Get("Please specify a user to unban.", "")
			}
		}
		r.reply(ctx, msg, text, nil)
		return nil
	}

	mention := punish.Mention(target.UserID, target.FirstName)
	if action == db.ActionBan {
		err = r.gateway.Unban(ctx, target.ChatID, target.UserID)
	} else {
		err = r.gateway.Unrestrict(ctx, target.ChatID, target.UserID)
	}
	if err != nil {
		r.reply(ctx, msg, errorText(err), nil)
		return nil
	}
	if action == db.ActionBan {
		r.reply(ctx, msg, i18n.Getf("User %s was unbanned by an administrator.", "", mention), nil)
	} else {
		r.reply(ctx, msg, i18n.Getf("User %s was unmuted by an administrator.", "", mention), nil)
	}
	return nil
}

func (r *Reactor) reportCommand(ctx context.Context, msg *bot.Message) error {
	cfg := r.features.Reports.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable || msg.From == nil {
		return nil
	}
	reported := msg.ReplyToMessage
	if reported == nil {
		r.reply(ctx, msg, i18n.Get("Reply to the message you want to report.", ""), nil)
		return nil
	}
	if member, err := r.admins.Member(ctx, msg.Chat.ID, msg.From.ID); err == nil && permissions.IsAdmin(member) {
		return nil
	}

	admins, err := r.admins.List(ctx, msg.Chat.ID)
	if err != nil {
		return errors.WithMessage(err, "cant list admins for report")
	}
	managers, _ := permissions.Split(admins)

	var senderID int64
	senderName := ""
	switch {
	case reported.From != nil:
		senderID, senderName = reported.From.ID, reported.From.FullName()
	case reported.SenderChat != nil:
		senderID, senderName = reported.SenderChat.ID, reported.SenderChat.Title
	}
	text := i18n.Getf(
		"Report on a message in chat %s (chat ID: %d)\n\nSender: %s (user ID: %d)\nMessage link: %s", "",
		html.EscapeString(msg.Chat.Title), msg.Chat.ID,
		html.EscapeString(senderName), senderID,
		punish.MessageLink(msg.Chat.ID, reported.MessageID),
	)
	for _, adminID := range managers {
		if _, err := r.gateway.SendMessage(ctx, bot.HTML(adminID, text)); err != nil {
			r.getLogEntry().WithField("admin_id", adminID).WithError(err).Debug("cant deliver report")
		}
	}

	r.reply(ctx, msg, cfg.Text, nil)
	if cfg.DeleteMessage {
		bot.TryDelete(ctx, r.gateway, msg.Chat.ID, reported.MessageID)
	}
	return nil
}

func (r *Reactor) rulesCommand(ctx context.Context, msg *bot.Message) error {
	cfg := r.features.Rules.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable {
		return nil
	}
	if cfg.Permissions == db.RulesForAdmins {
		if msg.From == nil {
			return nil
		}
		member, err := r.admins.Member(ctx, msg.Chat.ID, msg.From.ID)
		if err != nil || !permissions.IsAdmin(member) {
			return nil
		}
	}
	keyboard, _ := punish.FormatButtons(cfg.Buttons)
	r.reply(ctx, msg, cfg.Text, keyboard)
	return nil
}

func (r *Reactor) handlePrivate(ctx context.Context, msg *bot.Message) error {
	cmd, ok := parseCommand(msg, r.gateway.Self().UserName)
	if ok && cmd.name == "report" {
		r.reply(ctx, msg, i18n.Get("This command works in groups only.", ""), nil)
	}
	return nil
}

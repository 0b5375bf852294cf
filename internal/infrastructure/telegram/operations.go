package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/wafflebot/internal/bot"
)

const (
	requestsPerSecond = 25
	requestsBurst     = 30
)

// Operations implements bot.Gateway over the Bot API client.
type Operations struct {
	bot     *api.BotAPI
	limiter *rate.Limiter
	http    *http.Client
}

var _ bot.Gateway = (*Operations)(nil)

func NewOperations(botAPI *api.BotAPI) *Operations {
	return &Operations{
		bot:     botAPI,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsBurst),
		http:    http.DefaultClient,
	}
}

func (o *Operations) Self() bot.User {
	return bot.UserFromAPI(o.bot.Self)
}

func (o *Operations) request(ctx context.Context, op string, c api.Chattable) (*api.APIResponse, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, wrap(op, err)
	}
	resp, err := o.bot.Request(c)
	if err != nil {
		return nil, wrap(op, err)
	}
	return resp, nil
}

func (o *Operations) send(ctx context.Context, op string, c api.Chattable) (api.Message, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return api.Message{}, wrap(op, err)
	}
	msg, err := o.bot.Send(c)
	if err != nil {
		return api.Message{}, wrap(op, err)
	}
	return msg, nil
}

func wrap(op string, err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "not enough rights") {
		return fmt.Errorf("%w: %s: %w: %w", bot.ErrGateway, op, bot.ErrNoPrivileges, err)
	}
	return fmt.Errorf("%w: %s: %w", bot.ErrGateway, op, err)
}

func memberConfig(chatID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
		UserID: userID,
	}
}

func permissions(allowed bool) *api.ChatPermissions {
	return &api.ChatPermissions{
		CanSendMessages:       allowed,
		CanSendAudios:         allowed,
		CanSendDocuments:      allowed,
		CanSendPhotos:         allowed,
		CanSendVideos:         allowed,
		CanSendVideoNotes:     allowed,
		CanSendVoiceNotes:     allowed,
		CanSendPolls:          allowed,
		CanSendOtherMessages:  allowed,
		CanAddWebPagePreviews: allowed,
	}
}

// Restrict revokes every send permission; zero until means forever.
func (o *Operations) Restrict(ctx context.Context, chatID, userID int64, untilUnix int64) error {
	_, err := o.request(ctx, "restrict", api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        untilUnix,
		Permissions:      permissions(false),
	})
	return err
}

func (o *Operations) Unrestrict(ctx context.Context, chatID, userID int64) error {
	_, err := o.request(ctx, "unrestrict", api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		Permissions:      permissions(true),
	})
	return err
}

func (o *Operations) Ban(ctx context.Context, chatID, userID int64, untilUnix int64) error {
	_, err := o.request(ctx, "ban", api.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        untilUnix,
	})
	return err
}

func (o *Operations) Unban(ctx context.Context, chatID, userID int64) error {
	_, err := o.request(ctx, "unban", api.UnbanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		OnlyIfBanned:     true,
	})
	return err
}

func (o *Operations) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := o.request(ctx, "delete message", api.NewDeleteMessage(chatID, messageID))
	return err
}

func markup(keyboard bot.Keyboard) *api.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]api.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]api.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, api.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, api.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, api.NewInlineKeyboardRow(buttons...))
	}
	res := api.NewInlineKeyboardMarkup(rows...)
	return &res
}

func (o *Operations) SendMessage(ctx context.Context, out bot.OutgoingMessage) (*bot.Message, error) {
	parseMode := ""
	if out.HTML {
		parseMode = api.ModeHTML
	}
	kb := markup(out.Keyboard)

	msg := api.NewMessage(out.ChatID, out.Text)
	msg.ParseMode = parseMode
	msg.LinkPreviewOptions.IsDisabled = out.DisablePreview
	if out.PreviewURL != "" {
		msg.LinkPreviewOptions.IsDisabled = false
		msg.LinkPreviewOptions.URL = out.PreviewURL
		msg.LinkPreviewOptions.ShowAboveText = true
	}
	if kb != nil {
		msg.ReplyMarkup = kb
	}
	if out.ReplyTo != 0 {
		msg.ReplyParameters.MessageID = out.ReplyTo
		msg.ReplyParameters.AllowSendingWithoutReply = true
	}
	sent, err := o.send(ctx, "send message", msg)
	if err != nil {
		return nil, err
	}
	res, err := bot.MessageFromAPI(sent)
	if err != nil {
		return nil, wrap("decode sent message", err)
	}
	return res, nil
}

func (o *Operations) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, keyboard bot.Keyboard) error {
	edit := api.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = api.ModeHTML
	edit.ReplyMarkup = markup(keyboard)
	_, err := o.send(ctx, "edit message", edit)
	return err
}

func (o *Operations) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cfg := api.NewCallback(callbackID, text)
	if alert {
		cfg = api.NewCallbackWithAlert(callbackID, text)
	}
	_, err := o.request(ctx, "answer callback", cfg)
	return err
}

func (o *Operations) GetChatMember(ctx context.Context, chatID, userID int64) (bot.ChatMember, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return bot.ChatMember{}, wrap("get chat member", err)
	}
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
	if err != nil {
		return bot.ChatMember{}, wrap("get chat member", err)
	}
	res, err := bot.MemberFromAPI(member)
	if err != nil {
		return bot.ChatMember{}, wrap("decode chat member", err)
	}
	return res, nil
}

func (o *Operations) GetChatAdministrators(ctx context.Context, chatID int64) ([]bot.ChatMember, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, wrap("get chat administrators", err)
	}
	members, err := o.bot.GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, wrap("get chat administrators", err)
	}
	res := make([]bot.ChatMember, 0, len(members))
	for _, m := range members {
		member, err := bot.MemberFromAPI(m)
		if err != nil {
			return nil, wrap("decode chat member", err)
		}
		res = append(res, member)
	}
	return res, nil
}

func (o *Operations) GetChatMemberCount(ctx context.Context, chatID int64) (int, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return 0, wrap("get chat member count", err)
	}
	resp, err := o.bot.MakeRequest("getChatMemberCount", api.Params{
		"chat_id": strconv.FormatInt(chatID, 10),
	})
	if err != nil {
		return 0, wrap("get chat member count", err)
	}
	var count int
	if err := json.Unmarshal(resp.Result, &count); err != nil {
		return 0, wrap("decode chat member count", err)
	}
	return count, nil
}

// BanSenderChat bans a channel from posting on its behalf in the chat.
func (o *Operations) BanSenderChat(ctx context.Context, chatID, senderChatID int64) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return wrap("ban sender chat", err)
	}
	_, err := o.bot.MakeRequest("banChatSenderChat", api.Params{
		"chat_id":        strconv.FormatInt(chatID, 10),
		"sender_chat_id": strconv.FormatInt(senderChatID, 10),
	})
	if err != nil {
		return wrap("ban sender chat", err)
	}
	return nil
}

func (o *Operations) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return wrap("get file", err)
	}
	url, err := o.bot.GetFileDirectURL(fileID)
	if err != nil {
		return wrap("get file", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wrap("download file", err)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return wrap("download file", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return wrap("download file", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return wrap("download file", err)
	}
	return nil
}

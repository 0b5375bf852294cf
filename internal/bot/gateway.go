package bot

import (
	"context"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrGateway wraps every failed Bot API call.
	ErrGateway = errors.New("telegram gateway")
	// ErrNoPrivileges is reported when the bot lacks the admin right for an action.
	ErrNoPrivileges = errors.New("not enough rights")
)

type (
	Button struct {
		Text string
		Data string
		URL  string
	}

	Keyboard [][]Button

	OutgoingMessage struct {
		ChatID         int64
		Text           string
		HTML           bool
		Keyboard       Keyboard
		ReplyTo        int
		DisablePreview bool
		// PreviewURL forces the link preview to this URL, shown above the text.
		PreviewURL string
	}

	Deleter interface {
		DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	}

	Gateway interface {
		Restrict(ctx context.Context, chatID, userID int64, untilUnix int64) error
		Unrestrict(ctx context.Context, chatID, userID int64) error
		Ban(ctx context.Context, chatID, userID int64, untilUnix int64) error
		Unban(ctx context.Context, chatID, userID int64) error
		BanSenderChat(ctx context.Context, chatID, senderChatID int64) error
		DeleteMessage(ctx context.Context, chatID int64, messageID int) error
		SendMessage(ctx context.Context, msg OutgoingMessage) (*Message, error)
		EditMessageText(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error
		AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
		GetChatMember(ctx context.Context, chatID, userID int64) (ChatMember, error)
		GetChatAdministrators(ctx context.Context, chatID int64) ([]ChatMember, error)
		GetChatMemberCount(ctx context.Context, chatID int64) (int, error)
		DownloadFile(ctx context.Context, fileID string, w io.Writer) error
		Self() User
	}
)

func NewButtonData(text, data string) Button { return Button{Text: text, Data: data} }
func NewButtonURL(text, url string) Button   { return Button{Text: text, URL: url} }

// Row is a shorthand for a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// HTML builds an HTML formatted message without link previews.
func HTML(chatID int64, text string) OutgoingMessage {
	return OutgoingMessage{ChatID: chatID, Text: text, HTML: true, DisablePreview: true}
}

// TryDelete deletes a message and reports success; failures are only logged.
func TryDelete(ctx context.Context, g Deleter, chatID int64, messageID int) bool {
	if messageID == 0 {
		return false
	}
	if err := g.DeleteMessage(ctx, chatID, messageID); err != nil {
		log.WithFields(log.Fields{
			"chat_id":    chatID,
			"message_id": messageID,
			"error":      err.Error(),
		}).Debug("cant delete message")
		return false
	}
	return true
}

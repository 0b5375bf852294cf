package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	UpdateTimeout = 5 * time.Minute
)

// AllowedUpdates is the long-poll subscription. Edited messages are not moderated.
var AllowedUpdates = []string{"message", "callback_query", "my_chat_member", "chat_member"}

type (
	UpdateProcessor struct {
		enabled        []string
		registered     map[string]Handler
		updateHandlers []Handler
		now            func() time.Time
	}

	MessageType string
)

const (
	MessageTypeText      MessageType = "text"
	MessageTypeAnimation MessageType = "animation"
	MessageTypePhoto     MessageType = "photo"
	MessageTypeSticker   MessageType = "sticker"
)

// NewUpdateProcessor runs registered handlers in the order of enabled names.
func NewUpdateProcessor(enabled []string) *UpdateProcessor {
	return &UpdateProcessor{
		enabled:    enabled,
		registered: map[string]Handler{},
		now:        time.Now,
	}
}

func (up *UpdateProcessor) Register(title string, handler Handler) {
	up.registered[title] = handler
	up.updateHandlers = up.updateHandlers[:0]
	for _, name := range up.enabled {
		if h, ok := up.registered[name]; ok && h != nil {
			up.updateHandlers = append(up.updateHandlers, h)
		}
	}
}

// Missing reports enabled names that have no registered handler.
func (up *UpdateProcessor) Missing() []string {
	var missing []string
	for _, name := range up.enabled {
		if h, ok := up.registered[name]; !ok || h == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func (up *UpdateProcessor) ProcessAPI(ctx context.Context, u api.Update) error {
	update, err := UpdateFromAPI(u)
	if err != nil {
		return errors.WithMessage(err, "cant decode update")
	}
	return up.Process(ctx, update)
}

func (up *UpdateProcessor) Process(ctx context.Context, u *Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if date := u.Date(); date != 0 {
		updateTime := time.Unix(date, 0)
		if age := up.now().Sub(updateTime); age > UpdateTimeout {
			log.WithFields(log.Fields{
				"update_time": updateTime,
				"age":         age,
			}).Debug("Skipping outdated update")
			return nil
		}
	}

	chat, user := u.Chat(), u.Sender()
	for _, handler := range up.updateHandlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func GetUpdatesChans(ctx context.Context, bot *api.BotAPI, config api.UpdateConfig) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, bot.Buffer)
	chErr := make(chan error)

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			select {
			case <-ctx.Done():
				chErr <- ctx.Err()
				return
			default:
				updates, err := bot.GetUpdates(config)
				if err != nil {
					chErr <- err
					return
				}

				for _, update := range updates {
					if update.UpdateID >= config.Offset {
						config.Offset = update.UpdateID + 1
						select {
						case ch <- update:
						case <-ctx.Done():
							chErr <- ctx.Err()
							return
						}
					}
				}
			}
		}
	}()

	return ch, chErr
}

func GetMessageType(msg *Message) MessageType {
	switch {
	case msg.Animation != nil:
		return MessageTypeAnimation
	case len(msg.Photo) > 0:
		return MessageTypePhoto
	case msg.Sticker != nil:
		return MessageTypeSticker
	default:
		return MessageTypeText
	}
}

// LargestPhoto picks the biggest rendition of a photo message.
func LargestPhoto(msg *Message) *PhotoSize {
	var best *PhotoSize
	for i := range msg.Photo {
		p := &msg.Photo[i]
		if best == nil || p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}

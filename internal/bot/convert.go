package bot

import (
	"encoding/json"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

// convert re-decodes a client object through its Bot API JSON form.
func convert[T any](src any) (T, error) {
	var dst T
	raw, err := json.Marshal(src)
	if err != nil {
		return dst, errors.Wrap(err, "marshal api object")
	}
	if err := json.Unmarshal(raw, &dst); err != nil {
		return dst, errors.Wrap(err, "unmarshal api object")
	}
	return dst, nil
}

func UpdateFromAPI(u api.Update) (*Update, error) {
	res, err := convert[Update](u)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func MessageFromAPI(m api.Message) (*Message, error) {
	res, err := convert[Message](m)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func MemberFromAPI(m api.ChatMember) (ChatMember, error) {
	return convert[ChatMember](m)
}

func UserFromAPI(u api.User) User {
	return User{
		ID:           u.ID,
		IsBot:        u.IsBot,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		UserName:     u.UserName,
		LanguageCode: u.LanguageCode,
	}
}

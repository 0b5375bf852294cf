package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStore wraps every durable storage failure.
	ErrStore = errors.New("store error")
)

type (
	Chat struct {
		ID           int64     `db:"id"`
		Title        string    `db:"title"`
		MembersCount int       `db:"members_count"`
		Work         bool      `db:"work"`
		Admins       IDList    `db:"admins"`
		AllAdmins    IDList    `db:"all_admins"`
		UpdatedAt    time.Time `db:"updated_at"`
	}

	User struct {
		ID        int64     `db:"id"`
		UserName  string    `db:"username"`
		FirstName string    `db:"first_name"`
		LastName  string    `db:"last_name"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	MeetingHistory struct {
		ChatID         int64     `db:"chat_id"`
		UserID         int64     `db:"user_id"`
		MessageID      int       `db:"message_id"`
		FirstJoinedAt  time.Time `db:"first_joined_at"`
		LastWelcomedAt time.Time `db:"last_welcomed_at"`
	}

	FeatureSettings struct {
		ChatID    int64     `db:"chat_id"`
		Feature   Feature   `db:"feature"`
		Category  Category  `db:"category"`
		Payload   string    `db:"payload"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	EditorSession struct {
		ID        int64     `db:"id"`
		UserID    int64     `db:"user_id"`
		ChatID    int64     `db:"chat_id"`
		Page      string    `db:"page"`
		StateJSON string    `db:"state_json"`
		MessageID int       `db:"message_id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	// IDList is a JSON encoded list of user ids.
	IDList []int64
)

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *IDList) Scan(v interface{}) error {
	if v == nil {
		*l = nil
		return nil
	}
	switch data := v.(type) {
	case string:
		return json.Unmarshal([]byte(data), (*[]int64)(l))
	case []byte:
		return json.Unmarshal(data, (*[]int64)(l))
	default:
		return fmt.Errorf("cannot scan type %T into IDList", v)
	}
}

func (l IDList) Contains(id int64) bool {
	return slices.Contains(l, id)
}

// FullName falls back to the username when the user has no name set.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.UserName
	}
	return name
}

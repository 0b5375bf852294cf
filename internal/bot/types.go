package bot

import "strings"

// The types below mirror the subset of the Bot API the moderation pipeline
// reads. They are decoded from the client's update objects by their JSON form.
type (
	User struct {
		ID           int64  `json:"id"`
		IsBot        bool   `json:"is_bot"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name,omitempty"`
		UserName     string `json:"username,omitempty"`
		LanguageCode string `json:"language_code,omitempty"`
	}

	Chat struct {
		ID       int64  `json:"id"`
		Type     string `json:"type"`
		Title    string `json:"title,omitempty"`
		UserName string `json:"username,omitempty"`
		IsForum  bool   `json:"is_forum,omitempty"`
	}

	MessageEntity struct {
		Type   string `json:"type"`
		Offset int    `json:"offset"`
		Length int    `json:"length"`
		URL    string `json:"url,omitempty"`
	}

	PhotoSize struct {
		FileID       string `json:"file_id"`
		FileUniqueID string `json:"file_unique_id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		FileSize     int    `json:"file_size,omitempty"`
	}

	Sticker struct {
		FileID       string `json:"file_id"`
		FileUniqueID string `json:"file_unique_id"`
		SetName      string `json:"set_name,omitempty"`
	}

	Animation struct {
		FileID       string `json:"file_id"`
		FileUniqueID string `json:"file_unique_id"`
	}

	MessageOrigin struct {
		Type           string `json:"type"`
		SenderUser     *User  `json:"sender_user,omitempty"`
		SenderUserName string `json:"sender_user_name,omitempty"`
		SenderChat     *Chat  `json:"sender_chat,omitempty"`
		Chat           *Chat  `json:"chat,omitempty"`
	}

	ExternalReplyInfo struct {
		Origin MessageOrigin `json:"origin"`
		Chat   *Chat         `json:"chat,omitempty"`
	}

	Message struct {
		MessageID          int                `json:"message_id"`
		MessageThreadID    int                `json:"message_thread_id,omitempty"`
		From               *User              `json:"from,omitempty"`
		SenderChat         *Chat              `json:"sender_chat,omitempty"`
		Date               int64              `json:"date"`
		Chat               Chat               `json:"chat"`
		ForwardOrigin      *MessageOrigin     `json:"forward_origin,omitempty"`
		IsAutomaticForward bool               `json:"is_automatic_forward,omitempty"`
		ReplyToMessage     *Message           `json:"reply_to_message,omitempty"`
		ExternalReply      *ExternalReplyInfo `json:"external_reply,omitempty"`
		Text               string             `json:"text,omitempty"`
		Caption            string             `json:"caption,omitempty"`
		Entities           []MessageEntity    `json:"entities,omitempty"`
		CaptionEntities    []MessageEntity    `json:"caption_entities,omitempty"`
		Photo              []PhotoSize        `json:"photo,omitempty"`
		Sticker            *Sticker           `json:"sticker,omitempty"`
		Animation          *Animation         `json:"animation,omitempty"`
		NewChatMembers     []User             `json:"new_chat_members,omitempty"`
		LeftChatMember     *User              `json:"left_chat_member,omitempty"`
		NewChatTitle       string             `json:"new_chat_title,omitempty"`
	}

	ChatMember struct {
		User               *User  `json:"user"`
		Status             string `json:"status"`
		CanManageChat      bool   `json:"can_manage_chat,omitempty"`
		CanDeleteMessages  bool   `json:"can_delete_messages,omitempty"`
		CanRestrictMembers bool   `json:"can_restrict_members,omitempty"`
		CanPromoteMembers  bool   `json:"can_promote_members,omitempty"`
		CanSendMessages    bool   `json:"can_send_messages,omitempty"`
		UntilDate          int64  `json:"until_date,omitempty"`
	}

	ChatMemberUpdated struct {
		Chat          Chat       `json:"chat"`
		From          User       `json:"from"`
		Date          int64      `json:"date"`
		OldChatMember ChatMember `json:"old_chat_member"`
		NewChatMember ChatMember `json:"new_chat_member"`
	}

	CallbackQuery struct {
		ID      string   `json:"id"`
		From    *User    `json:"from"`
		Message *Message `json:"message,omitempty"`
		Data    string   `json:"data,omitempty"`
	}

	Update struct {
		UpdateID      int                `json:"update_id"`
		Message       *Message           `json:"message,omitempty"`
		EditedMessage *Message           `json:"edited_message,omitempty"`
		CallbackQuery *CallbackQuery     `json:"callback_query,omitempty"`
		MyChatMember  *ChatMemberUpdated `json:"my_chat_member,omitempty"`
		ChatMember    *ChatMemberUpdated `json:"chat_member,omitempty"`
	}
)

const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"

	MemberCreator       = "creator"
	MemberAdministrator = "administrator"
	MemberMember        = "member"
	MemberRestricted    = "restricted"
	MemberLeft          = "left"
	MemberKicked        = "kicked"

	OriginUser       = "user"
	OriginHiddenUser = "hidden_user"
	OriginChat       = "chat"
	OriginChannel    = "channel"

	EntityURL      = "url"
	EntityTextLink = "text_link"
	EntityMention  = "mention"
)

func (c *Chat) IsGroup() bool {
	return c != nil && (c.Type == ChatTypeGroup || c.Type == ChatTypeSupergroup)
}

func (m ChatMember) IsCreator() bool       { return m.Status == MemberCreator }
func (m ChatMember) IsAdministrator() bool { return m.Status == MemberAdministrator }
func (m ChatMember) IsRestricted() bool    { return m.Status == MemberRestricted }
func (m ChatMember) HasLeft() bool         { return m.Status == MemberLeft }
func (m ChatMember) WasKicked() bool       { return m.Status == MemberKicked }

// IsPresent is true for members that can currently read the chat.
func (m ChatMember) IsPresent() bool {
	return !m.HasLeft() && !m.WasKicked()
}

// FullName falls back to the username when no name is set.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

// Sender returns the author of the update, if any.
func (u *Update) Sender() *User {
	switch {
	case u.Message != nil:
		return u.Message.From
	case u.EditedMessage != nil:
		return u.EditedMessage.From
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From
	case u.MyChatMember != nil:
		return &u.MyChatMember.From
	case u.ChatMember != nil:
		return &u.ChatMember.From
	}
	return nil
}

// Chat returns the chat the update belongs to, if any.
func (u *Update) Chat() *Chat {
	switch {
	case u.Message != nil:
		return &u.Message.Chat
	case u.EditedMessage != nil:
		return &u.EditedMessage.Chat
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return &u.CallbackQuery.Message.Chat
	case u.MyChatMember != nil:
		return &u.MyChatMember.Chat
	case u.ChatMember != nil:
		return &u.ChatMember.Chat
	}
	return nil
}

// Date is the unix time of the underlying event, 0 when unknown.
func (u *Update) Date() int64 {
	switch {
	case u.Message != nil:
		return u.Message.Date
	case u.EditedMessage != nil:
		return u.EditedMessage.Date
	case u.MyChatMember != nil:
		return u.MyChatMember.Date
	case u.ChatMember != nil:
		return u.ChatMember.Date
	}
	return 0
}

// AllEntities returns text and caption entities together with the text they index.
func (m *Message) AllEntities() []EntityText {
	var res []EntityText
	for _, e := range m.Entities {
		res = append(res, EntityText{MessageEntity: e, Text: entityText(m.Text, e)})
	}
	for _, e := range m.CaptionEntities {
		res = append(res, EntityText{MessageEntity: e, Text: entityText(m.Caption, e)})
	}
	return res
}

// EntityText pairs an entity with the substring it covers.
type EntityText struct {
	MessageEntity
	Text string
}

// entityText slices by UTF-16 code units, as entity offsets are defined.
func entityText(s string, e MessageEntity) string {
	units := encodeUTF16(s)
	start, end := e.Offset, e.Offset+e.Length
	if start < 0 || end > len(units) || start > end {
		return ""
	}
	return decodeUTF16(units[start:end])
}

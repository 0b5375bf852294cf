package bot

import "testing"

func TestEntityTextUsesUTF16Offsets(t *testing.T) {
	t.Parallel()

	msg := &Message{
		Text:     "😀 go t.me/x",
		Entities: []MessageEntity{{Type: EntityURL, Offset: 6, Length: 6}},
		Caption:  "bad",
		CaptionEntities: []MessageEntity{
			{Type: EntityURL, Offset: 2, Length: 5},
		},
	}
	entities := msg.AllEntities()
	if len(entities) != 2 {
		t.Fatalf("unexpected entities: %+v", entities)
	}
	if entities[0].Text != "t.me/x" {
		t.Fatalf("emoji offset mishandled: %q", entities[0].Text)
	}
	if entities[1].Text != "" {
		t.Fatalf("out of range entity produced %q", entities[1].Text)
	}
}

func TestUpdateAccessors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		update Update
		chatID int64
		userID int64
	}{
		{
			name:   "message",
			update: Update{Message: &Message{Chat: Chat{ID: -1}, From: &User{ID: 1}}},
			chatID: -1, userID: 1,
		},
		{
			name:   "callback",
			update: Update{CallbackQuery: &CallbackQuery{From: &User{ID: 2}, Message: &Message{Chat: Chat{ID: -2}}}},
			chatID: -2, userID: 2,
		},
		{
			name:   "chat member",
			update: Update{ChatMember: &ChatMemberUpdated{Chat: Chat{ID: -3}, From: User{ID: 3}}},
			chatID: -3, userID: 3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.update.Chat(); got == nil || got.ID != tc.chatID {
				t.Fatalf("unexpected chat: %+v", got)
			}
			if got := tc.update.Sender(); got == nil || got.ID != tc.userID {
				t.Fatalf("unexpected sender: %+v", got)
			}
		})
	}

	if (&Update{}).Chat() != nil || (&Update{}).Sender() != nil {
		t.Fatalf("empty update has chat or sender")
	}
}

func TestFullName(t *testing.T) {
	t.Parallel()

	if got := (&User{FirstName: "Ann", LastName: "Lee"}).FullName(); got != "Ann Lee" {
		t.Fatalf("full name = %q", got)
	}
	if got := (&User{UserName: "ann"}).FullName(); got != "ann" {
		t.Fatalf("username fallback = %q", got)
	}
	var nilUser *User
	if nilUser.FullName() != "" {
		t.Fatalf("nil user has a name")
	}
}

package punish

import "testing"

func TestRender(t *testing.T) {
	t.Parallel()

	vars := Vars{
		UserID: 7, FirstName: "<Ann>", Duration: "1 час", Reason: "spam & ads",
		ChatID: -1001234, ChatTitle: "Waffles", MessageID: 42, WarnCount: 2, MaxWarns: 3,
	}
	cases := []struct {
		name, template, want string
	}{
		{
			name:     "warn text",
			template: "%%__mention__%% [%%__user_id__%%] предупрежден (%%__warn_count__%%/%%__max_warns__%%).",
			want:     "<a href='tg://user?id=7'>&lt;Ann&gt;</a> [7] предупрежден (2/3).",
		},
		{
			name:     "escaped values",
			template: "%%__full_name__%%: %%__reason__%% in %%__chat_title__%% for %%__duration__%%",
			want:     "&lt;Ann&gt;: spam &amp; ads in Waffles for 1 час",
		},
		{
			name:     "message link",
			template: "%%__message_link__%%",
			want:     "https://t.me/c/1234/42",
		},
		{
			name:     "unknown tokens stay",
			template: "%%__unknown__%% %%__user_id__%%",
			want:     "%%__unknown__%% 7",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.template, vars); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatButtons(t *testing.T) {
	t.Parallel()

	kb, ok := FormatButtons("Google - https://google.com && YouTube - youtube.com\nTelegram - https://t.me/waffle")
	if !ok {
		t.Fatalf("valid layout rejected")
	}
	if len(kb) != 2 || len(kb[0]) != 2 || len(kb[1]) != 1 {
		t.Fatalf("unexpected layout: %+v", kb)
	}
	if kb[0][1].URL != "http://youtube.com" || kb[0][1].Text != "YouTube" {
		t.Fatalf("scheme not added: %+v", kb[0][1])
	}

	for _, bad := range []string{"", "   ", "no separator", "Text - ", " - http://x"} {
		if _, ok := FormatButtons(bad); ok {
			t.Fatalf("invalid layout %q accepted", bad)
		}
	}
}

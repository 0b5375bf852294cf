package handlers

import (
	"regexp"
	"testing"
)

func TestEncodeChatIDUsesDeepLinkSafeCharset(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	for _, chatID := range []int64{0, 123, -123, -1001234567890} {
		encoded := encodeChatID(chatID)
		if !re.MatchString(encoded) {
			t.Fatalf("encoded chat id %q contains unsupported chars", encoded)
		}
		if len(deepLinkPrefix+encoded) > 64 {
			t.Fatalf("deep link payload too long: %q", encoded)
		}
	}
}

func TestChatIDRoundTrip(t *testing.T) {
	t.Parallel()

	for _, chatID := range []int64{1, 123, 999999999, -1, -123, -1001234567890} {
		encoded := encodeChatID(chatID)
		decoded, err := decodeChatID(encoded)
		if err != nil {
			t.Fatalf("decodeChatID(%q) failed: %v", encoded, err)
		}
		if decoded != chatID {
			t.Fatalf("round trip mismatch: got %d, want %d", decoded, chatID)
		}
	}
}

func TestDecodeChatIDRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"", "x123", "n", "n!!", "pAAAAAAAAAAAAAA"} {
		if _, err := decodeChatID(value); err == nil {
			t.Fatalf("decodeChatID(%q) accepted", value)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []token{
		{SessionID: 1, Action: actionClose},
		{SessionID: 70000, Action: actionOpen, Arg: pageArg("block_channels", "")},
		{SessionID: 1 << 40, Action: actionOpen, Arg: pageArg("forward", "channels")},
		{SessionID: 9, Action: actionToggle, Arg: string(fieldEnable)},
	}
	for _, tc := range cases {
		data := tc.String()
		if len(data) > maxCallbackBytes {
			t.Fatalf("callback data %q exceeds %d bytes", data, maxCallbackBytes)
		}
		got, ok := parseToken(data)
		if !ok || got != tc {
			t.Fatalf("parseToken(%q) = %+v, %v", data, got, ok)
		}
	}

	p, category := splitPageArg(pageArg("forward", "channels"))
	if p != "forward" || category != "channels" {
		t.Fatalf("splitPageArg = %q %q", p, category)
	}
}

func TestParseTokenRejectsForeignData(t *testing.T) {
	t.Parallel()

	for _, data := range []string{"", "unmute:7", "captcha;7", "ed", "ed:AQ", "ed:!!:o", "ed:AA:o", selectData(-100)} {
		if _, ok := parseToken(data); ok {
			t.Fatalf("parseToken(%q) accepted", data)
		}
	}
}

func TestSelectData(t *testing.T) {
	t.Parallel()

	chatID, ok := parseSelectData(selectData(-1001234567890))
	if !ok || chatID != -1001234567890 {
		t.Fatalf("parseSelectData = %d, %v", chatID, ok)
	}
	if _, ok := parseSelectData("es:garbage!"); ok {
		t.Fatalf("garbage accepted")
	}
}

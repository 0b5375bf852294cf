package handlers

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	tokenPrefix      = "ed"
	selectPrefix     = "es"
	tokenSeparator   = ":"
	deepLinkPrefix   = "settings_"
	negativeMarker   = "n"
	positiveMarker   = "p"
	maxCallbackBytes = 64
)

// encodeChatID keeps deep link payloads within [A-Za-z0-9_-].
func encodeChatID(chatID int64) string {
	marker := positiveMarker
	if chatID < 0 {
		marker = negativeMarker
		chatID = -chatID
	}
	return marker + encodeUint64Min(uint64(chatID))
}

func decodeChatID(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty chat id")
	}
	marker, rest := value[:1], value[1:]
	if marker != negativeMarker && marker != positiveMarker {
		return 0, fmt.Errorf("invalid chat id sign %q", marker)
	}
	id, err := decodeUint64Min(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id: %w", err)
	}
	if id > 1<<63-1 {
		return 0, fmt.Errorf("chat id overflow")
	}
	if marker == negativeMarker {
		return -int64(id), nil
	}
	return int64(id), nil
}

func encodeUint64Min(value uint64) string {
	if value == 0 {
		return base64.RawURLEncoding.EncodeToString([]byte{0})
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	i := 0
	for i < len(buf) && buf[i] == 0 {
		i++
	}
	return base64.RawURLEncoding.EncodeToString(buf[i:])
}

func decodeUint64Min(value string) (uint64, error) {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", err)
	}
	if len(data) == 0 || len(data) > 8 {
		return 0, fmt.Errorf("invalid id length")
	}
	if len(data) < 8 {
		padded := make([]byte, 8-len(data))
		data = append(padded, data...)
	}
	return binary.BigEndian.Uint64(data), nil
}

// token is a decoded editor callback: ed:<session>:<action>[:<arg>].
type token struct {
	SessionID int64
	Action    action
	Arg       string
}

func (t token) String() string {
	parts := []string{tokenPrefix, encodeUint64Min(uint64(t.SessionID)), string(t.Action)}
	if t.Arg != "" {
		parts = append(parts, t.Arg)
	}
	return strings.Join(parts, tokenSeparator)
}

func parseToken(data string) (token, bool) {
	parts := strings.SplitN(data, tokenSeparator, 4)
	if len(parts) < 3 || parts[0] != tokenPrefix {
		return token{}, false
	}
	id, err := decodeUint64Min(parts[1])
	if err != nil || id == 0 {
		return token{}, false
	}
	t := token{SessionID: int64(id), Action: action(parts[2])}
	if len(parts) == 4 {
		t.Arg = parts[3]
	}
	return t, true
}

func selectData(chatID int64) string {
	return selectPrefix + tokenSeparator + encodeChatID(chatID)
}

func parseSelectData(data string) (int64, bool) {
	raw, found := strings.CutPrefix(data, selectPrefix+tokenSeparator)
	if !found {
		return 0, false
	}
	chatID, err := decodeChatID(raw)
	if err != nil {
		return 0, false
	}
	return chatID, true
}

// pageArg packs a feature page and its optional category into a token argument.
func pageArg(p page, category string) string {
	if category == "" {
		return string(p)
	}
	return string(p) + "/" + category
}

func splitPageArg(arg string) (page, string) {
	p, category, _ := strings.Cut(arg, "/")
	return page(p), category
}

package handlers

import (
	"time"

	"github.com/iamwavecut/wafflebot/internal/db"
)

// page is the feature whose settings are shown; pageHome lists all features.
type page = db.Feature

const pageHome page = ""

type action string

const (
	actionOpen   action = "o"
	actionToggle action = "t"
	actionCycle  action = "c"
	actionPrompt action = "p"
	actionBack   action = "b"
	actionClose  action = "x"
	actionNoop   action = "n"
)

type field string

const (
	fieldEnable      field = "en"
	fieldAction      field = "ac"
	fieldDuration    field = "du"
	fieldDelete      field = "de"
	fieldJournal     field = "jr"
	fieldExceptions  field = "ex"
	fieldUsername    field = "un"
	fieldBot         field = "bt"
	fieldMessages    field = "ms"
	fieldTime        field = "tm"
	fieldWarnsCount  field = "wc"
	fieldPercent     field = "pc"
	fieldText        field = "tx"
	fieldMedia       field = "md"
	fieldButtons     field = "bu"
	fieldAlwaysSend  field = "as"
	fieldDeleteLast  field = "dl"
	fieldPermissions field = "pm"
	fieldStickers    field = "st"
	fieldStickerSets field = "ss"
	fieldGifs        field = "gf"
)

type fieldKind int

const (
	kindToggle fieldKind = iota
	kindCycle
	kindPrompt
)

const (
	sessionTTL      = time.Hour
	cleanupInterval = 5 * time.Minute

	maxTextLen    = 4000
	maxButtonsLen = 1024
	clearValue    = "-"
)

type editorState struct {
	Page      page        `json:"page"`
	Category  db.Category `json:"category,omitempty"`
	ChatTitle string      `json:"chat_title"`
	Prompt    field       `json:"prompt,omitempty"`
	Notice    string      `json:"notice,omitempty"`
}

func (s editorState) pageName() string {
	if s.Prompt != "" {
		return "prompt"
	}
	if s.Page == pageHome {
		return "home"
	}
	return string(s.Page)
}

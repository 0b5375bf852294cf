package db

import "github.com/pkg/errors"

type (
	Feature  string
	Category string
	Action   string
)

const (
	FeatureAntiflood     Feature = "antiflood"
	FeatureTLinks        Feature = "tlinks"
	FeatureForward       Feature = "forward"
	FeatureQuotes        Feature = "quotes"
	FeatureLinks         Feature = "links"
	FeatureBlocks        Feature = "blocks"
	FeatureNSFW          Feature = "nsfw"
	FeatureWarns         Feature = "warns"
	FeatureMeeting       Feature = "meeting"
	FeatureCaptcha       Feature = "captcha"
	FeatureModeration    Feature = "moderation"
	FeatureReports       Feature = "reports"
	FeatureRules         Feature = "rules"
	FeatureBlockChannels Feature = "block_channels"
)

const (
	CategoryNone Category = ""

	CategoryChannels Category = "channels"
	CategoryChats    Category = "chats"
	CategoryBots     Category = "bots"
	CategoryUsers    Category = "users"

	CategoryWarn Category = "warn"
	CategoryMute Category = "mute"
	CategoryBan  Category = "ban"
	CategoryKick Category = "kick"
)

const (
	ActionWarn Action = "warn"
	ActionMute Action = "mute"
	ActionKick Action = "kick"
	ActionBan  Action = "ban"
)

var ErrUnknownAction = errors.New("unknown action")

// OriginCategories are the sender kinds forwards and quotes are classified into.
var OriginCategories = []Category{CategoryChannels, CategoryChats, CategoryBots, CategoryUsers}

var Actions = []Action{ActionWarn, ActionMute, ActionKick, ActionBan}

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionWarn, ActionMute, ActionKick, ActionBan:
		return a, nil
	}
	return "", errors.Wrapf(ErrUnknownAction, "%q", s)
}

// Next cycles through actions in a fixed order.
func (a Action) Next() Action {
	for i, candidate := range Actions {
		if candidate == a {
			return Actions[(i+1)%len(Actions)]
		}
	}
	return ActionMute
}

type (
	// Punishment is the shared action part of every filter policy.
	Punishment struct {
		Action        Action `json:"action"`
		Duration      string `json:"duration"`
		DeleteMessage bool   `json:"delete_message"`
		Journal       bool   `json:"journal"`
	}

	Antiflood struct {
		Enable   bool `json:"enable"`
		Messages int  `json:"messages"`
		Time     int  `json:"time"`
		Punishment
	}

	TLinks struct {
		Enable     bool     `json:"enable"`
		Username   bool     `json:"username"`
		Bot        bool     `json:"bot"`
		Exceptions []string `json:"exceptions"`
		Punishment
	}

	// OriginPolicy configures one category of forwards or quotes.
	OriginPolicy struct {
		Enable     bool     `json:"enable"`
		Exceptions []string `json:"exceptions"`
		Punishment
	}

	Links struct {
		Enable     bool     `json:"enable"`
		Exceptions []string `json:"exceptions"`
		Punishment
	}

	Blocks struct {
		Enable      bool     `json:"enable"`
		Stickers    []string `json:"stickers"`
		StickerSets []string `json:"set_stickers"`
		Gifs        []string `json:"gifs"`
		Journal     bool     `json:"journal"`
	}

	NSFW struct {
		Enable  bool   `json:"enable"`
		Percent int    `json:"percent"`
		Text    string `json:"text"`
		Punishment
	}

	Warns struct {
		Enable     bool   `json:"enable"`
		WarnsCount int    `json:"warns_count"`
		Text       string `json:"text"`
		Action     Action `json:"action"`
		Duration   string `json:"duration"`
	}

	Meeting struct {
		Enable            bool   `json:"enable"`
		Text              string `json:"text"`
		AlwaysSend        bool   `json:"always_send"`
		DeleteLastMessage bool   `json:"delete_last_message"`
		MediaLink         string `json:"media_link"`
		Buttons           string `json:"buttons"`
	}

	Captcha struct {
		Enable bool `json:"enable"`
	}

	// Moderation configures one manual command, keyed by category.
	Moderation struct {
		Enable        bool   `json:"enable"`
		DeleteMessage bool   `json:"delete_message"`
		Journal       bool   `json:"journal"`
		Text          string `json:"text"`
	}

	Reports struct {
		Enable        bool   `json:"enable"`
		DeleteMessage bool   `json:"delete_message"`
		Text          string `json:"text"`
	}

	Rules struct {
		Enable      bool   `json:"enable"`
		Text        string `json:"text"`
		Buttons     string `json:"buttons"`
		Permissions string `json:"permissions"`
	}

	BlockChannels struct {
		Enable bool   `json:"enable"`
		Text   string `json:"text"`
	}
)

const (
	DefaultWarnText = "%%__mention__%% [%%__user_id__%%] предупрежден (%%__warn_count__%%/%%__max_warns__%%)."

	RulesForMembers = "members"
	RulesForAdmins  = "admins"
)

func defaultPunishment() Punishment {
	return Punishment{
		Action:        ActionMute,
		Duration:      "3600",
		DeleteMessage: true,
		Journal:       true,
	}
}

func DefaultAntiflood() Antiflood {
	return Antiflood{
		Enable:   true,
		Messages: 5,
		Time:     10,
		Punishment: Punishment{
			Action:        ActionMute,
			Duration:      "60s",
			DeleteMessage: true,
			Journal:       true,
		},
	}
}

func DefaultTLinks() TLinks {
	return TLinks{
		Enable:     true,
		Username:   true,
		Bot:        true,
		Punishment: defaultPunishment(),
	}
}

func DefaultOriginPolicy() OriginPolicy {
	return OriginPolicy{Punishment: defaultPunishment()}
}

func DefaultLinks() Links {
	return Links{Punishment: defaultPunishment()}
}

func DefaultBlocks() Blocks {
	return Blocks{Enable: true, Journal: true}
}

func DefaultNSFW() NSFW {
	return NSFW{
		Percent:    80,
		Text:       "Обнаружен небезопасный контент!",
		Punishment: defaultPunishment(),
	}
}

func DefaultWarns() Warns {
	return Warns{
		Enable:     true,
		WarnsCount: 3,
		Text:       DefaultWarnText,
		Action:     ActionMute,
		Duration:   "1800",
	}
}

func DefaultMeeting() Meeting {
	return Meeting{
		Enable:            true,
		Text:              "Приветствуем в нашем чате!",
		DeleteLastMessage: true,
	}
}

func DefaultCaptcha() Captcha {
	return Captcha{}
}

var moderationTexts = map[Category]string{
	CategoryWarn: DefaultWarnText,
	CategoryMute: "🔇 %%__mention__%% [%%__user_id__%%] получает мут на %%__duration__%%.\nПричина: %%__reason__%%",
	CategoryBan:  "🚫 %%__mention__%% [%%__user_id__%%] забанен на %%__duration__%%.\nПричина: %%__reason__%%",
	CategoryKick: "👢 %%__mention__%% [%%__user_id__%%] исключён из чата.\nПричина: %%__reason__%%",
}

// DefaultModeration depends on the command the settings belong to.
func DefaultModeration(category Category) Moderation {
	return Moderation{
		Enable:  true,
		Journal: true,
		Text:    moderationTexts[category],
	}
}

func DefaultReports() Reports {
	return Reports{
		Enable: true,
		Text:   "Репорт отправлен!",
	}
}

func DefaultRules() Rules {
	return Rules{
		Text:        "Правила",
		Permissions: RulesForMembers,
	}
}

func DefaultBlockChannels() BlockChannels {
	return BlockChannels{Text: "Обнаружен канал! Блокирую.."}
}

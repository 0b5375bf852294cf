package handlers

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/db"
	"github.com/iamwavecut/wafflebot/internal/duration"
	"github.com/iamwavecut/wafflebot/internal/filters"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/punish"
)

const (
	minPunishSeconds = 30
	maxPunishSeconds = 365 * 86400
	maxListItems     = 100
	previewLen       = 60
)

var errUnknownField = errors.New("unknown field")

// ValidationError carries a human readable reason for rejected input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: i18n.Getf(format, "", args...)}
}

// Repository is the typed settings access the editor writes through.
type Repository[T any] interface {
	Get(ctx context.Context, chatID int64, category db.Category) T
	Save(ctx context.Context, chatID int64, category db.Category, patch func(*T)) (T, error)
}

type control struct {
	field field
	kind  fieldKind
	label string
	value string
}

// form edits one feature schema regardless of its Go type.
type form interface {
	categories() []db.Category
	controls(ctx context.Context, chatID int64, category db.Category) []control
	lookup(f field) (control, string, bool)
	flip(ctx context.Context, chatID int64, category db.Category, f field) error
	assign(ctx context.Context, chatID int64, category db.Category, f field, input string) error
}

type binding[T any] struct {
	kind     fieldKind
	label    string
	hint     string
	hintArgs []any
	view     func(*T) string
	flip  func(*T)
	parse func(input string) (func(*T), error)
}

type entry[T any] struct {
	field field
	b     binding[T]
}

func with[T any](f field, b binding[T]) entry[T] {
	return entry[T]{field: f, b: b}
}

type settingsForm[T any] struct {
	repo    Repository[T]
	cats    []db.Category
	entries []entry[T]
}

func formOf[T any](repo Repository[T], cats []db.Category, entries ...entry[T]) *settingsForm[T] {
	return &settingsForm[T]{repo: repo, cats: cats, entries: entries}
}

func (f *settingsForm[T]) categories() []db.Category { return f.cats }

func (f *settingsForm[T]) binding(fd field) (binding[T], bool) {
	for _, e := range f.entries {
		if e.field == fd {
			return e.b, true
		}
	}
	return binding[T]{}, false
}

func (f *settingsForm[T]) controls(ctx context.Context, chatID int64, category db.Category) []control {
	value := f.repo.Get(ctx, chatID, category)
	out := make([]control, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, control{field: e.field, kind: e.b.kind, label: e.b.label, value: e.b.view(&value)})
	}
	return out
}

func (f *settingsForm[T]) lookup(fd field) (control, string, bool) {
	b, ok := f.binding(fd)
	if !ok {
		return control{}, "", false
	}
	hint := i18n.Get(b.hint, "")
	if len(b.hintArgs) > 0 {
		hint = i18n.Getf(b.hint, "", b.hintArgs...)
	}
	return control{field: fd, kind: b.kind, label: b.label}, hint, true
}

func (f *settingsForm[T]) flip(ctx context.Context, chatID int64, category db.Category, fd field) error {
	b, ok := f.binding(fd)
	if !ok || b.flip == nil {
		return errors.Wrapf(errUnknownField, "%q", fd)
	}
	_, err := f.repo.Save(ctx, chatID, category, b.flip)
	return err
}

func (f *settingsForm[T]) assign(ctx context.Context, chatID int64, category db.Category, fd field, input string) error {
	b, ok := f.binding(fd)
	if !ok || b.parse == nil {
		return errors.Wrapf(errUnknownField, "%q", fd)
	}
	patch, err := b.parse(input)
	if err != nil {
		return err
	}
	_, err = f.repo.Save(ctx, chatID, category, patch)
	return err
}

func mark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}

func toggle[T any](label string, ptr func(*T) *bool) binding[T] {
	return binding[T]{
		kind:  kindToggle,
		label: label,
		view:  func(v *T) string { return mark(*ptr(v)) },
		flip: func(v *T) {
			p := ptr(v)
			*p = !*p
		},
	}
}

func cycleAction[T any](ptr func(*T) *db.Action) binding[T] {
	return binding[T]{
		kind:  kindCycle,
		label: "Action",
		view:  func(v *T) string { return i18n.Get(string(*ptr(v)), "") },
		flip: func(v *T) {
			p := ptr(v)
			*p = p.Next()
		},
	}
}

func audience[T any](ptr func(*T) *string) binding[T] {
	return binding[T]{
		kind:  kindCycle,
		label: "Visible to",
		view:  func(v *T) string { return i18n.Get(*ptr(v), "") },
		flip: func(v *T) {
			p := ptr(v)
			if *p == db.RulesForAdmins {
				*p = db.RulesForMembers
				return
			}
			*p = db.RulesForAdmins
		},
	}
}

func durationPrompt[T any](ptr func(*T) *string) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: "Duration",
		hint:  "Examples: 30s, 10m, 2h, 1d, 1w or forever. From 30 seconds to 365 days.",
		view:  func(v *T) string { return humanDuration(*ptr(v)) },
		parse: func(input string) (func(*T), error) {
			token, err := parseDurationInput(input)
			if err != nil {
				return nil, err
			}
			return func(v *T) { *ptr(v) = token }, nil
		},
	}
}

// parseDurationInput accepts "3 m" as well as "3m" and keeps the token form.
func parseDurationInput(input string) (string, error) {
	token := strings.ToLower(strings.Join(strings.Fields(input), ""))
	d, err := duration.ParseRelative(token)
	if err != nil {
		return "", invalid("use a number with s, m, h, d, w or y, or forever")
	}
	if !d.Forever && (d.Seconds < minPunishSeconds || d.Seconds > maxPunishSeconds) {
		return "", invalid("from 30 seconds to 365 days")
	}
	return token, nil
}

var compactUnits = []struct {
	suffix  string
	seconds int64
}{
	{"y", 31536000}, {"w", 604800}, {"d", 86400}, {"h", 3600}, {"m", 60}, {"s", 1},
}

// humanDuration renders both stored seconds and relative tokens.
func humanDuration(stored string) string {
	if strings.TrimSpace(stored) == "" {
		return "—"
	}
	n, err := strconv.ParseInt(strings.TrimSpace(stored), 10, 64)
	if err != nil {
		return duration.FormatHuman(stored)
	}
	for _, u := range compactUnits {
		if n >= u.seconds && n%u.seconds == 0 {
			return duration.FormatHuman(fmt.Sprintf("%d%s", n/u.seconds, u.suffix))
		}
	}
	return duration.FormatHuman("0s")
}

func number[T any](label string, ptr func(*T) *int, low, high int) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: label,
		hint:     "A number from %d to %d.",
		hintArgs: []any{low, high},
		view:     func(v *T) string { return strconv.Itoa(*ptr(v)) },
		parse: func(input string) (func(*T), error) {
			n, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || n < low || n > high {
				return nil, invalid("expected a number from %d to %d", low, high)
			}
			return func(v *T) { *ptr(v) = n }, nil
		},
	}
}

func text[T any](label string, ptr func(*T) *string) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: label,
		hint:  "Placeholders: %%__mention__%%, %%__full_name__%%, %%__user_id__%%, %%__chat_title__%%, %%__duration__%%, %%__reason__%%.",
		view:  func(v *T) string { return preview(*ptr(v)) },
		parse: func(input string) (func(*T), error) {
			t := strings.TrimSpace(input)
			if t == "" {
				return nil, invalid("the text is empty")
			}
			if utf8.RuneCountInString(t) > maxTextLen {
				return nil, invalid("the text is longer than %d characters", maxTextLen)
			}
			return func(v *T) { *ptr(v) = t }, nil
		},
	}
}

func mediaLink[T any](ptr func(*T) *string) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: "Media",
		hint:  "A link to an image or animation, or - to remove it.",
		view:  func(v *T) string { return preview(*ptr(v)) },
		parse: func(input string) (func(*T), error) {
			t := strings.TrimSpace(input)
			if t == clearValue {
				return func(v *T) { *ptr(v) = "" }, nil
			}
			u, err := url.Parse(t)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, invalid("expected an http or https link")
			}
			return func(v *T) { *ptr(v) = t }, nil
		},
	}
}

func buttons[T any](ptr func(*T) *string) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: "Buttons",
		hint:  "One row per line: Text - link && Text - link. Send - to remove the buttons.",
		view:  func(v *T) string { return preview(*ptr(v)) },
		parse: func(input string) (func(*T), error) {
			t := strings.TrimSpace(input)
			if t == clearValue {
				return func(v *T) { *ptr(v) = "" }, nil
			}
			if len(t) > maxButtonsLen {
				return nil, invalid("the text is longer than %d characters", maxButtonsLen)
			}
			if _, ok := punish.FormatButtons(t); !ok {
				return nil, invalid("expected rows of \"Text - link\" pairs")
			}
			return func(v *T) { *ptr(v) = t }, nil
		},
	}
}

func list[T any](label, hint string, ptr func(*T) *[]string, normalize func(string) string) binding[T] {
	return binding[T]{
		kind:  kindPrompt,
		label: label,
		hint:  hint,
		view: func(v *T) string {
			items := *ptr(v)
			if len(items) == 0 {
				return "—"
			}
			return preview(strings.Join(items, ", "))
		},
		parse: func(input string) (func(*T), error) {
			items, err := parseList(input, normalize)
			if err != nil {
				return nil, err
			}
			return func(v *T) { *ptr(v) = items }, nil
		},
	}
}

// parseList splits on commas and whitespace; "-" clears the list.
func parseList(input string, normalize func(string) string) ([]string, error) {
	if strings.TrimSpace(input) == clearValue {
		return nil, nil
	}
	var items []string
	for _, raw := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
		item := normalize(raw)
		if item == "" || slices.Contains(items, item) {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, invalid("the list is empty")
	}
	if len(items) > maxListItems {
		return nil, invalid("no more than %d entries", maxListItems)
	}
	return items, nil
}

func exceptions[T any](ptr func(*T) *[]string) binding[T] {
	return list("Exceptions", "Usernames, links or ids separated by spaces or commas. Send - to clear.", ptr, filters.NormalizeException)
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "—"
	}
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen]) + "…"
}

func punishment[T any](ptr func(*T) *db.Punishment) []entry[T] {
	return []entry[T]{
		with(fieldAction, cycleAction(func(v *T) *db.Action { return &ptr(v).Action })),
		with(fieldDuration, durationPrompt(func(v *T) *string { return &ptr(v).Duration })),
		with(fieldDelete, toggle("Delete message", func(v *T) *bool { return &ptr(v).DeleteMessage })),
		with(fieldJournal, toggle("Journal", func(v *T) *bool { return &ptr(v).Journal })),
	}
}

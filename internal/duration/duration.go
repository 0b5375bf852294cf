// Package duration parses and renders moderation durations such as "10m",
// "2d" or "forever".
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const foreverToken = "forever"

var (
	ErrParse = errors.New("invalid duration")

	tokenRe = regexp.MustCompile(`(?i)^(\d+)([smhdwy])$`)

	multipliers = map[byte]int64{
		's': 1,
		'm': 60,
		'h': 3600,
		'd': 86400,
		'w': 604800,
		'y': 31536000,
	}

	unitForms = map[byte][3]string{
		's': {"секунда", "секунды", "секунд"},
		'm': {"минута", "минуты", "минут"},
		'h': {"час", "часа", "часов"},
		'd': {"день", "дня", "дней"},
		'w': {"неделя", "недели", "недель"},
		'y': {"год", "года", "лет"},
	}
)

// Duration is either a number of seconds or the unbounded marker.
type Duration struct {
	Seconds int64
	Forever bool
}

var Forever = Duration{Forever: true}

func Seconds(n int64) Duration {
	return Duration{Seconds: n}
}

// ParseRelative parses "<n><unit>" or "forever".
func ParseRelative(token string) (Duration, error) {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, foreverToken) {
		return Forever, nil
	}
	m := tokenRe.FindStringSubmatch(token)
	if m == nil {
		return Duration{}, errors.Wrapf(ErrParse, "%q", token)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Duration{}, errors.Wrapf(ErrParse, "%q: %v", token, err)
	}
	unit := strings.ToLower(m[2])[0]
	return Duration{Seconds: n * multipliers[unit]}, nil
}

// ParseAbsolute returns now plus the parsed delta. ok is false for forever.
func ParseAbsolute(token string, now time.Time) (until time.Time, ok bool, err error) {
	d, err := ParseRelative(token)
	if err != nil {
		return time.Time{}, false, err
	}
	until, ok = d.Until(now)
	return until, ok, nil
}

// ParseStored accepts persisted values: plain seconds, a relative token or forever.
func ParseStored(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return Duration{}, errors.Wrapf(ErrParse, "%q", s)
		}
		return Duration{Seconds: n}, nil
	}
	return ParseRelative(s)
}

func (d Duration) Until(now time.Time) (time.Time, bool) {
	if d.Forever {
		return time.Time{}, false
	}
	return now.Add(time.Duration(d.Seconds) * time.Second), true
}

// UnixUntil is the Telegram until_date, 0 meaning forever.
func (d Duration) UnixUntil(now time.Time) int64 {
	until, ok := d.Until(now)
	if !ok {
		return 0
	}
	return until.Unix()
}

// String renders the persisted form.
func (d Duration) String() string {
	if d.Forever {
		return foreverToken
	}
	return strconv.FormatInt(d.Seconds, 10)
}

// FormatHuman renders a relative token in Russian, echoing unrecognized input.
func FormatHuman(token string) string {
	trimmed := strings.TrimSpace(token)
	if strings.EqualFold(trimmed, foreverToken) {
		return "навсегда"
	}
	m := tokenRe.FindStringSubmatch(trimmed)
	if m == nil {
		return token
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return token
	}
	forms := unitForms[strings.ToLower(m[2])[0]]
	return fmt.Sprintf("%d %s", n, Plural(n, forms))
}

// Plural picks one of three Slavic plural forms for n.
func Plural(n int64, forms [3]string) string {
	if n < 0 {
		n = -n
	}
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return forms[0]
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 12 || mod100 > 14):
		return forms[1]
	default:
		return forms[2]
	}
}

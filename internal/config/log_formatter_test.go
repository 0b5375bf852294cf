package config

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestWaffleFormatterPlain(t *testing.T) {
	t.Parallel()

	entry := &log.Entry{
		Level:   log.InfoLevel,
		Time:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Message: "line one\nline two",
		Data: log.Fields{
			"chat_id": -100,
			"handler": "reactor",
			"error":   errors.New("boom"),
		},
	}

	out, err := (&WaffleFormatter{NoColor: true}).Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `level=INFO ts=2024-05-01 10:00:00.000 chat_id=-100 error="boom" handler="reactor" msg="line one\nline two"` + "\n"
	if string(out) != want {
		t.Fatalf("unexpected output:\n%q\nwant\n%q", out, want)
	}
}

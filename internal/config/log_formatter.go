package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

// WaffleFormatter renders entries as colored key=value pairs with sorted fields.
type WaffleFormatter struct {
	NoColor bool
}

func (f *WaffleFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	f.pair(&b, "level", levelColor(entry.Level), strings.ToUpper(entry.Level.String())[:4])
	f.pair(&b, "ts", colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000"))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := entry.Data[k]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		m, err := json.Marshal(val)
		if err != nil || len(m) == 0 {
			continue
		}
		s := string(m)
		valueColor := colorCyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = colorGreen
		} else if strings.HasPrefix(s, "\"") {
			valueColor = colorLightYellow
		}
		f.pair(&b, k, valueColor, s)
	}
	f.pair(&b, "msg", colorLightGreen, strconv.Quote(entry.Message))

	output := strings.TrimPrefix(b.String(), " ")
	output = strings.NewReplacer("\r", "\\r", "\n", "\\n").Replace(output)
	return []byte(output + "\n"), nil
}

func (f *WaffleFormatter) pair(b *strings.Builder, key string, valueColor int, value string) {
	if f.NoColor {
		fmt.Fprintf(b, " %s=%s", key, value)
		return
	}
	fmt.Fprintf(b, " \x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", colorCyan, key, valueColor, value)
}

func levelColor(level log.Level) int {
	switch level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return colorRed
	case log.WarnLevel:
		return colorYellow
	case log.DebugLevel, log.TraceLevel:
		return colorGray
	default:
		return colorBlue
	}
}

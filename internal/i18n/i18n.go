package i18n

import (
	"fmt"
	"path"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/wafflebot/resources"
)

const resourcesPath = "i18n"

var state = struct {
	sync.RWMutex
	translations    map[string]map[string]string
	loaded          map[string]bool
	defaultLanguage string
}{
	translations:    make(map[string]map[string]string),
	loaded:          make(map[string]bool),
	defaultLanguage: "ru",
}

func SetDefaultLanguage(lang string) {
	if lang == "" {
		return
	}
	state.Lock()
	defer state.Unlock()
	state.defaultLanguage = lang
}

func DefaultLanguage() string {
	state.RLock()
	defer state.RUnlock()
	return state.defaultLanguage
}

func load(lang string) map[string]string {
	state.Lock()
	defer state.Unlock()
	if state.loaded[lang] {
		return state.translations[lang]
	}
	state.loaded[lang] = true

	raw, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
	if err != nil {
		log.WithField("lang", lang).WithError(err).Errorln("cant load i18n")
		return nil
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithField("lang", lang).WithError(err).Errorln("cant unmarshal i18n")
		return nil
	}
	state.translations[lang] = translations
	return translations
}

// Get translates an English key; empty lang means the default language.
func Get(key, lang string) string {
	if lang == "" {
		lang = DefaultLanguage()
	}
	if lang == "en" {
		return key
	}

	state.RLock()
	translations, loaded := state.translations[lang], state.loaded[lang]
	state.RUnlock()
	if !loaded {
		translations = load(lang)
	}
	if res, ok := translations[key]; ok {
		return res
	}
	log.Tracef(`no translation for key "%s"`, key)
	return key
}

func Getf(key, lang string, args ...any) string {
	return fmt.Sprintf(Get(key, lang), args...)
}

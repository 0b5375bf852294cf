package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		DefaultLanguage  string   `env:"LANG,default=ru"`
		EnabledHandlers  []string `env:"HANDLERS,default=admin,gatekeeper,reactor"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.wafflebot"`
		DBFile           string   `env:"DB_FILE,default=waffle.db"`
		MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`
		JournalChatID    int64    `env:"JOURNAL_CHAT_ID"`
		Redis            Redis
		Cache            Cache
		NSFW             NSFW
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB,default=0"`
	}

	Cache struct {
		SettingsTTL   time.Duration `env:"SETTINGS_CACHE_TTL,default=600s"`
		SettingsSize  int           `env:"SETTINGS_CACHE_SIZE,default=4096"`
		AdminsTTL     time.Duration `env:"ADMINS_CACHE_TTL,default=60s"`
		SharedInRedis bool          `env:"SETTINGS_CACHE_REDIS,default=false"`
	}

	NSFW struct {
		Type    string `env:"NSFW_API_TYPE,default=none"`
		APIKey  string `env:"NSFW_API_KEY"`
		Model   string `env:"NSFW_API_MODEL"`
		BaseURL string `env:"NSFW_API_URL,default=https://api.openai.com/v1"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process reads WAFFLE_ prefixed variables from the lookuper.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper("WAFFLE_", lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	return cfg, nil
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}

package config

type Config struct {
	Log struct {
		Context bool   `mapstructure:"context"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"log"`

	Database struct {
		Driver string `mapstructure:"driver"` // postgres | sqlite3
		URL    string `mapstructure:"url"`
	} `mapstructure:"database"`

	Storage struct {
		Location string `mapstructure:"location"` // 为空时不保存失败页面
	} `mapstructure:"storage"`

	Downloader struct {
		Timeout   uint32 `mapstructure:"timeout"` // seconds
		Retry     uint32 `mapstructure:"retry"`
		Backoff   uint32 `mapstructure:"backoff"` // milliseconds
		UserAgent string `mapstructure:"user_agent"`
	} `mapstructure:"downloader"`

	Search struct {
		Worker        uint32 `mapstructure:"worker"`
		Limit         int    `mapstructure:"limit"`
		NameLength    int    `mapstructure:"name_length"`
		SampleResults bool   `mapstructure:"sample_results"`
	} `mapstructure:"search"`

	Refresh struct {
		Worker   uint32 `mapstructure:"worker"`
		Schedule string `mapstructure:"schedule"`
	} `mapstructure:"refresh"`

	Notifier struct {
		Kind string `mapstructure:"kind"` // log | smtp | telegram
		SMTP struct {
			Host     string `mapstructure:"host"`
			Port     int    `mapstructure:"port"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
			From     string `mapstructure:"from"`
		} `mapstructure:"smtp"`
		Telegram struct {
			Token  string `mapstructure:"token"`
			ChatID int64  `mapstructure:"chat_id"`
		} `mapstructure:"telegram"`
	} `mapstructure:"notifier"`

	Metrics struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"metrics"`
}

// Default returns a config with every tunable set; a config file only
// needs to carry what differs.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Database.Driver = "postgres"
	cfg.Downloader.Timeout = 12
	cfg.Downloader.Retry = 1
	cfg.Downloader.Backoff = 500
	cfg.Search.Worker = 4
	cfg.Search.Limit = 5
	cfg.Search.NameLength = 100
	cfg.Refresh.Worker = 4
	cfg.Refresh.Schedule = "@every 12h"
	cfg.Notifier.Kind = "log"
	cfg.Notifier.SMTP.Port = 587
	return cfg
}

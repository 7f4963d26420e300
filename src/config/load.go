package config

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/andrewyi/pricewatch/src/util"
)

// Load reads .env (if any) into the environment, then the config file over
// the defaults, then env overrides. An empty path skips the file only.
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()
	if err := util.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("fail to load config %s: %w", path, err)
	}
	return cfg, nil
}

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from
// config.yml. A missing file is not an error: defaults apply.
func LoadAppConfig() error {
	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	var cfg AppConfig
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return err
		}
		v := validator.New()
		if cfg.Server.Port != 0 {
			if err := v.Struct(cfg.Server); err != nil {
				return err
			}
		}
		if err := v.Struct(cfg.Feed); err != nil {
			return err
		}
	}
	Config = cfg
	if Config.Server.Port == 0 {
		Config.Server.Port = 8780
	}
	if Config.Feed.TimeoutMS == 0 {
		Config.Feed.TimeoutMS = 10000
	}
	if Config.Feed.PollIntervalMS == 0 {
		Config.Feed.PollIntervalMS = 30000
	}
	return nil
}

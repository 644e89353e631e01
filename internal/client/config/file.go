package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophmarks/internal/flagx"
	"github.com/dmitrijs2005/gophmarks/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Fields left out of
// the file keep their previous value.
type FileConfig struct {
	DatabaseDSN    string         `json:"database_dsn" yaml:"database_dsn"`
	DatabaseRole   string         `json:"database_role" yaml:"database_role"`
	AuthURL        string         `json:"auth_url" yaml:"auth_url"`
	AuthAPIKey     string         `json:"auth_api_key" yaml:"auth_api_key"`
	JWTSecret      string         `json:"jwt_secret" yaml:"jwt_secret"`
	Provider       string         `json:"provider" yaml:"provider"`
	CallbackAddr   string         `json:"callback_addr" yaml:"callback_addr"`
	LocalDBPath    string         `json:"local_db_path" yaml:"local_db_path"`
	FeedDriver     string         `json:"feed_driver" yaml:"feed_driver"`
	RedisAddr      string         `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword  string         `json:"redis_password" yaml:"redis_password"`
	RedisDB        *int           `json:"redis_db" yaml:"redis_db"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
	LogFormat      string         `json:"log_format" yaml:"log_format"`
	LogFile        string         `json:"log_file" yaml:"log_file"`
}

// parseFile overlays cfg with the file named by -c/-config. It panics when
// the file cannot be read or decoded.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(cfg)
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.DatabaseRole, fc.DatabaseRole)
	setString(&cfg.AuthURL, fc.AuthURL)
	setString(&cfg.AuthAPIKey, fc.AuthAPIKey)
	setString(&cfg.JWTSecret, fc.JWTSecret)
	setString(&cfg.Provider, fc.Provider)
	setString(&cfg.CallbackAddr, fc.CallbackAddr)
	setString(&cfg.LocalDBPath, fc.LocalDBPath)
	setString(&cfg.FeedDriver, fc.FeedDriver)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.LogFile, fc.LogFile)

	if fc.RedisDB != nil {
		cfg.RedisDB = *fc.RedisDB
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

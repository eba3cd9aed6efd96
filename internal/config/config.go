package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configFileName string
var configFilePath string

// 환경변수로만 주입되는 비밀값
var secretBindings = map[string]string{
	"google.client_id":   "GOOGLE_CLIENT_ID",
	"google.picker_key":  "GOOGLE_PICKER_KEY",
	"extraction.api_key": "OPENAI_API_KEY",
	"session.secret":     "SESSION_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.web_dir", "")
	v.SetDefault("database.url", "data/invoicedesk.db")
	v.SetDefault("library.trash_name", "ゴミ箱")
	v.SetDefault("library.locale", "ja")
	v.SetDefault("library.accept_csv", true)
	v.SetDefault("library.max_upload_bytes", 50<<20)
	v.SetDefault("invoice.font_regular", "")
	v.SetDefault("invoice.font_bold", "")
	v.SetDefault("extraction.enabled", true)
	v.SetDefault("extraction.model", "gpt-3.5-turbo")
	v.SetDefault("extraction.base_url", "")
	v.SetDefault("extraction.timeout", 30*time.Second)
	v.SetDefault("extraction.max_retries", 2)
	v.SetDefault("extraction.concurrency", 4)
	v.SetDefault("google.scopes", []string{
		"https://www.googleapis.com/auth/drive.file",
		"https://www.googleapis.com/auth/spreadsheets.readonly",
		"https://www.googleapis.com/auth/userinfo.email",
	})
	v.SetDefault("google.endpoint", "")
	v.SetDefault("session.issuer", "invoicedesk")
	v.SetDefault("session.ttl", time.Hour)
	v.SetDefault("session.check_interval", time.Minute)
}

// Load는 설정 파일과 환경변수를 읽어 Config를 구성합니다
func Load(v *viper.Viper, goEnv string) (Config, error) {
	setDefaults(v)

	v.AddConfigPath("config")
	v.SetConfigType("yaml")
	if goEnv == "production" {
		configFileName = "config.prod"
	} else {
		configFileName = "config.dev"
	}
	v.SetConfigName(configFileName)

	v.SetEnvPrefix("INVOICEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range secretBindings {
		if err := v.BindEnv(key, "INVOICEDESK_"+env, env); err != nil {
			return Config{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		log.Warn().Msgf("Config file %s not found, using defaults", configFileName)
	}
	configFilePath = v.ConfigFileUsed()

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func SetConfig(goEnv string) {
	log.Info().Msgf("Loading configuration for environment: %s", goEnv)

	conf, err := Load(viper.GetViper(), goEnv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	Conf = conf

	if configFilePath != "" {
		log.Info().Msgf("Config file loaded: %s", configFilePath)
	}
	if Conf.Session.Secret == "" {
		log.Warn().Msg("SESSION_SECRET is not set, session cookies use an ephemeral key")
	}
}

// SaveConfig는 설정을 YAML 파일에 저장합니다
func SaveConfig() error {
	if configFilePath == "" {
		configFilePath = "config/" + configFileName + ".yaml"
	}

	data, err := yaml.Marshal(&Conf)
	if err != nil {
		return err
	}

	err = os.WriteFile(configFilePath, data, 0644)
	if err != nil {
		return err
	}

	log.Info().Msgf("Configuration saved to %s", configFilePath)
	return nil
}

package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log          Log          `yaml:"log"`
	Telegram     Telegram     `yaml:"telegram"`
	Pipeline     Pipeline     `yaml:"pipeline"`
	Intelligence Intelligence `yaml:"intelligence"`
	Storage      Storage      `yaml:"storage"`
	OpenAI       ModelConfig  `yaml:"openai"`
	API          API          `yaml:"api"`
}

type Telegram struct {
	// Bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789" validate:"required"`
	// User IDs allowed to talk to the bot, everyone is allowed when empty
	AllowedUserIDs []int64 `yaml:"allowed_user_ids" example:"[123456789]"`
}

type Pipeline struct {
	// Fast-path processing endpoint, fallback storage is used when empty
	URL string `yaml:"url" example:"https://pipeline.example.com/process"`
}

type Intelligence struct {
	// Contact operations endpoint
	URL string `yaml:"url" example:"https://intelligence.example.com"`
	// Bearer token for the contact operations endpoint
	Token string `yaml:"token"`
}

type Storage struct {
	// S3-compatible endpoint, AWS is used when empty
	Endpoint string `yaml:"endpoint" example:"https://storage.yandexcloud.net"`
	// Bucket region
	Region string `yaml:"region" example:"us-east-1" validate:"required"`
	// Target bucket for deferred audio processing
	Bucket string `yaml:"bucket" example:"jarvis-inbox" validate:"required"`
	// Static access key
	AccessKeyID string `yaml:"access_key_id"`
	// Static secret key
	SecretKey string `yaml:"secret_key"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini"`
}

type API struct {
	// HTTP port for status endpoints
	Port int `yaml:"port" example:"8080"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.API.Port == 0 {
		result.API.Port = 8080
	}
	if result.Storage.Region == "" {
		result.Storage.Region = "us-east-1"
	}
	if result.OpenAI.Model == "" {
		result.OpenAI.Model = "gpt-4o-mini"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

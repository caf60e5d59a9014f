package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

type Gemini struct {
	APIKey      string `yaml:"api_key" env:"GEMINI_API_KEY"`
	APIKeyParam string `yaml:"api_key_param" env:"GEMINI_API_KEY_PARAM"`
	Model       string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.0-flash-exp"`
	Prompt      string `yaml:"prompt" env:"PROMPT"`
	PromptParam string `yaml:"prompt_param" env:"PROMPT_PARAM"`
}

type Share struct {
	// Bucket selects S3 storage; Dir selects a local directory. Bucket wins when both are set.
	Bucket       string `yaml:"bucket" env:"BUCKET"`
	Distribution string `yaml:"distribution" env:"DISTRIBUTION"`
	Dir          string `yaml:"dir" env:"SHARE_DIR"`
	BaseURL      string `yaml:"base_url" env:"BASE_URL"`
	AppURL       string `yaml:"app_url" env:"APP_URL"`
	Text         string `yaml:"text" env:"SHARE_TEXT" env-default:"Check out this cool cartoon I created with CartoonizeMe!"`
}

func (s Share) Enabled() bool {
	return (s.Bucket != "" || s.Dir != "") && s.BaseURL != ""
}

// LocalPath is the URL path the server mounts Dir under. It is empty unless
// shares are written to a local directory.
func (s Share) LocalPath() string {
	if s.Bucket != "" || s.Dir == "" || s.BaseURL == "" {
		return ""
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	return "/" + strings.Trim(u.Path, "/")
}

type Telegram struct {
	Token      string `yaml:"token" env:"TELEGRAM_TOKEN"`
	TokenParam string `yaml:"token_param" env:"TELEGRAM_TOKEN_PARAM"`
	ChatID     int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

func (t Telegram) Enabled() bool {
	return (t.Token != "" || t.TokenParam != "") && t.ChatID != 0
}

type Reddit struct {
	ClientID          string `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientIDParam     string `yaml:"client_id_param" env:"REDDIT_CLIENT_ID_PARAM"`
	ClientSecret      string `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET"`
	ClientSecretParam string `yaml:"client_secret_param" env:"REDDIT_CLIENT_SECRET_PARAM"`
	Username          string `yaml:"username" env:"REDDIT_USERNAME"`
	Password          string `yaml:"password" env:"REDDIT_PASSWORD"`
	PasswordParam     string `yaml:"password_param" env:"REDDIT_PASSWORD_PARAM"`
	Subreddit         string `yaml:"subreddit" env:"SUBREDDIT"`
}

func (r Reddit) Enabled() bool {
	return r.Subreddit != "" && r.Username != ""
}

type Config struct {
	Env            string   `yaml:"env" env:"ENV" env-default:"prod"`
	Addr           string   `yaml:"addr" env:"ADDR" env-default:":8080"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	Gemini         Gemini   `yaml:"gemini"`
	Share          Share    `yaml:"share"`
	Telegram       Telegram `yaml:"telegram"`
	Reddit         Reddit   `yaml:"reddit"`
}

// Load reads path when it exists and always applies the environment on top.
func Load(path string) (*Config, error) {
	var cfg Config
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(&cfg, nil)
		return nil, fmt.Errorf("config: %w; %s", err, desc)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Gemini.APIKey == "" && c.Gemini.APIKeyParam == "" {
		return errors.New("one of GEMINI_API_KEY or GEMINI_API_KEY_PARAM is required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Share.BaseURL != "" {
		if _, err := url.Parse(c.Share.BaseURL); err != nil {
			return fmt.Errorf("BASE_URL: %w", err)
		}
		if c.Share.LocalPath() == "/" {
			return errors.New("BASE_URL needs a path such as /shared when SHARE_DIR is served locally")
		}
	}
	return nil
}

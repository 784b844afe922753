package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".wechat-publisher/"

//go:embed config/settings.yaml
var defaultSettings string

// MediaMode selects how article media is sourced. Only prepared media is
// implemented; the generated mode is reserved for API-produced images.
type MediaMode string

const (
	ModePrepared  MediaMode = "prepared"
	ModeGenerated MediaMode = "generated"
)

// UploadPolicy decides what a failed inline upload does to the run.
type UploadPolicy string

const (
	PolicyStrict  UploadPolicy = "strict"
	PolicyLenient UploadPolicy = "lenient"
)

// Settings is the YAML configuration structure. Secrets never live here; they
// come from the environment (see Credentials).
type Settings struct {
	WeChat struct {
		BaseURL            string `yaml:"base_url"`
		DefaultAuthor      string `yaml:"default_author"`
		NeedOpenComment    bool   `yaml:"need_open_comment"`
		OnlyFansCanComment bool   `yaml:"only_fans_can_comment"`
		Original           bool   `yaml:"original"`
		Appreciation       bool   `yaml:"appreciation"`
		Recommendation     bool   `yaml:"recommendation"`
	} `yaml:"wechat"`
	Paths struct {
		CoverDir   string `yaml:"cover_dir"`
		ContentDir string `yaml:"content_dir"`
		OutputDir  string `yaml:"output_dir"`
	} `yaml:"paths"`
	Media struct {
		Mode         MediaMode    `yaml:"mode"`
		UploadPolicy UploadPolicy `yaml:"upload_policy"`
		Concurrency  int          `yaml:"concurrency"`
	} `yaml:"media"`
	Summary struct {
		Enabled        bool   `yaml:"enabled"`
		Model          string `yaml:"model"`
		MaxChars       int    `yaml:"max_chars"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"summary"`
	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		Retries        int `yaml:"retries"`
	} `yaml:"http"`
}

// Credentials holds the secrets read from the environment.
type Credentials struct {
	AppID         string
	AppSecret     string
	SummaryAPIKey string
}

// HTTPTimeout returns the configured remote-call timeout.
func (s *Settings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTP.TimeoutSeconds) * time.Second
}

// SummaryTimeout returns the bounded timeout for summary generation.
func (s *Settings) SummaryTimeout() time.Duration {
	return time.Duration(s.Summary.TimeoutSeconds) * time.Second
}

// loadSettings loads settings from YAML with fallback to embedded defaults
// if the file doesn't exist.
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return parseSettings([]byte(defaultSettings))
		}
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}
	return parseSettings(data)
}

// resolveSettings loads the effective settings. An explicit path is used as
// given; only the default location is bootstrapped on first run.
func resolveSettings(settingsPath string) (*Settings, error) {
	if settingsPath != "" {
		return loadSettingsRequired(settingsPath)
	}
	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	return loadSettings(filepath.Join(defaultConfigDir, "settings.yaml"))
}

// loadSettingsRequired loads settings from YAML, failing if the file is missing.
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", settingsPath, err)
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	applyDefaults(&settings)
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func applyDefaults(s *Settings) {
	if s.WeChat.BaseURL == "" {
		s.WeChat.BaseURL = "https://api.weixin.qq.com/cgi-bin"
	}
	if s.Paths.CoverDir == "" {
		s.Paths.CoverDir = "assets/covers"
	}
	if s.Paths.ContentDir == "" {
		s.Paths.ContentDir = "assets/content"
	}
	if s.Paths.OutputDir == "" {
		s.Paths.OutputDir = "output"
	}
	if s.Media.Mode == "" {
		s.Media.Mode = ModePrepared
	}
	if s.Media.UploadPolicy == "" {
		s.Media.UploadPolicy = PolicyStrict
	}
	if s.Media.Concurrency <= 0 {
		s.Media.Concurrency = 4
	}
	if s.Summary.MaxChars <= 0 {
		s.Summary.MaxChars = 120
	}
	if s.Summary.TimeoutSeconds <= 0 {
		s.Summary.TimeoutSeconds = 30
	}
	if s.HTTP.TimeoutSeconds <= 0 {
		s.HTTP.TimeoutSeconds = 30
	}
	if s.HTTP.Retries <= 0 {
		s.HTTP.Retries = 3
	}
}

func validateSettings(s *Settings) error {
	switch s.Media.Mode {
	case ModePrepared, ModeGenerated:
	default:
		return fmt.Errorf("invalid media mode %q (must be prepared or generated)", s.Media.Mode)
	}
	switch s.Media.UploadPolicy {
	case PolicyStrict, PolicyLenient:
	default:
		return fmt.Errorf("invalid upload policy %q (must be strict or lenient)", s.Media.UploadPolicy)
	}
	return nil
}

// loadCredentials reads secrets from the environment. The summary key is
// optional since summary generation is best-effort.
func loadCredentials() (*Credentials, error) {
	creds := &Credentials{
		AppID:         os.Getenv("WECHAT_APP_ID"),
		AppSecret:     os.Getenv("WECHAT_APP_SECRET"),
		SummaryAPIKey: os.Getenv("SUMMARY_API_KEY"),
	}
	if creds.AppID == "" || creds.AppSecret == "" {
		return nil, fmt.Errorf("WECHAT_APP_ID and WECHAT_APP_SECRET must be set in the environment or .env")
	}
	return creds, nil
}

// ensureConfigExists creates the config directory and writes the default
// settings.yaml on first run.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	defaultMinTextLength  = 10
	defaultMaxTextLength  = 15000
	defaultRequestTimeout = 25
	defaultModelLoadWait  = 12
)

func checkFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %04o; should be 0600", path, perm)
	}
	return nil
}

type Config struct {
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Limits      Limits            `yaml:"limits,omitempty"`
	Lexicon     LexiconConfig     `yaml:"lexicon,omitempty"`
	Reply       ReplyConfig       `yaml:"reply,omitempty"`
	Inbox       InboxConfig       `yaml:"inbox,omitempty"`
	Web         WebConfig         `yaml:"web,omitempty"`
	HistoryDB   string            `yaml:"history_db,omitempty"`
}

// HuggingFaceConfig holds settings for the remote inference tier.
type HuggingFaceConfig struct {
	Enabled          bool     `yaml:"enabled"`
	APIKey           string   `yaml:"api_key"`
	Models           []string `yaml:"models,omitempty"` // zero-shot models, tried in order
	GenerationModel  string   `yaml:"generation_model,omitempty"`
	TimeoutSec       int      `yaml:"timeout_sec,omitempty"`         // per-request timeout
	ModelLoadWaitSec int      `yaml:"model_load_wait_sec,omitempty"` // wait before the single 503 retry
}

// Limits bounds the accepted input text length.
type Limits struct {
	MinTextLength int `yaml:"min_text_length,omitempty"`
	MaxTextLength int `yaml:"max_text_length,omitempty"`
}

// LexiconConfig carries custom terms appended to the built-in lexicon.
type LexiconConfig struct {
	ProductiveWords   []string `yaml:"productive_words,omitempty"`
	UnproductiveWords []string `yaml:"unproductive_words,omitempty"`
}

// ReplyConfig holds settings for sending suggested replies.
type ReplyConfig struct {
	Provider string     `yaml:"provider,omitempty"` // "smtp", "resend", "sendgrid"
	From     string     `yaml:"from,omitempty"`
	APIKey   string     `yaml:"api_key,omitempty"` // resend/sendgrid key
	SMTP     SMTPConfig `yaml:"smtp,omitempty"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

// InboxConfig holds IMAP settings for watching a mailbox
type InboxConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Provider      string `yaml:"provider"`       // "gmail", "outlook", "imap"
	Server        string `yaml:"server"`         // e.g., "imap.gmail.com"
	Port          int    `yaml:"port"`           // e.g., 993
	Email         string `yaml:"email"`          // Address to watch
	Password      string `yaml:"password"`       // App password (not main password)
	Folder        string `yaml:"folder"`         // Folder to watch (default: "INBOX")
	AutoReply     bool   `yaml:"auto_reply"`     // Send the suggested reply automatically
	AutoArchive   bool   `yaml:"auto_archive"`   // Move processed emails to the archive folder
	ArchiveFolder string `yaml:"archive_folder"` // Folder to archive to (default: "Mailsift")
}

type WebConfig struct {
	Port            int `yaml:"port,omitempty"`
	RateLimitPerMin int `yaml:"rate_limit_per_min,omitempty"`
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mailsift", "config.yaml")
}

func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "mailsift.db"
	}
	return filepath.Join(home, ".mailsift", "mailsift.db")
}

// DefaultModels is the ordered zero-shot model list tried by the remote tier.
var DefaultModels = []string{
	"facebook/bart-large-mnli",
	"joeddav/xlm-roberta-large-xnli",
	"typeform/distilbert-base-uncased-mnli",
}

const DefaultGenerationModel = "google/flan-t5-base"

func Load(path string) (*Config, error) {
	if err := checkFilePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values so a sparse config file still works.
func (c *Config) ApplyDefaults() {
	if len(c.HuggingFace.Models) == 0 {
		c.HuggingFace.Models = append([]string(nil), DefaultModels...)
	}
	if c.HuggingFace.GenerationModel == "" {
		c.HuggingFace.GenerationModel = DefaultGenerationModel
	}
	if c.HuggingFace.TimeoutSec == 0 {
		c.HuggingFace.TimeoutSec = defaultRequestTimeout
	}
	if c.HuggingFace.ModelLoadWaitSec == 0 {
		c.HuggingFace.ModelLoadWaitSec = defaultModelLoadWait
	}

	if c.Limits.MinTextLength == 0 {
		c.Limits.MinTextLength = defaultMinTextLength
	}
	if c.Limits.MaxTextLength == 0 {
		c.Limits.MaxTextLength = defaultMaxTextLength
	}

	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryPath()
	}

	if c.Inbox.Folder == "" {
		c.Inbox.Folder = "INBOX"
	}
	if c.Inbox.ArchiveFolder == "" {
		c.Inbox.ArchiveFolder = "Mailsift"
	}
	if c.Inbox.Provider == "gmail" && c.Inbox.Server == "" {
		c.Inbox.Server = "imap.gmail.com"
		c.Inbox.Port = 993
	}
	if c.Inbox.Provider == "outlook" && c.Inbox.Server == "" {
		c.Inbox.Server = "outlook.office365.com"
		c.Inbox.Port = 993
	}

	if c.Web.Port == 0 {
		c.Web.Port = 8433
	}
	if c.Web.RateLimitPerMin == 0 {
		c.Web.RateLimitPerMin = 30
	}
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.HuggingFace.Enabled && c.HuggingFace.APIKey == "" {
		return fmt.Errorf("huggingface: api_key is required when the remote tier is enabled")
	}
	if c.Limits.MinTextLength < 1 {
		return fmt.Errorf("limits: min_text_length must be positive")
	}
	if c.Limits.MaxTextLength <= c.Limits.MinTextLength {
		return fmt.Errorf("limits: max_text_length must be greater than min_text_length")
	}

	switch c.Reply.Provider {
	case "", "smtp", "resend", "sendgrid":
	default:
		return fmt.Errorf("reply: unknown provider %q (smtp, resend or sendgrid)", c.Reply.Provider)
	}
	if c.Reply.Provider != "" && c.Reply.From == "" {
		return fmt.Errorf("reply: from address is required")
	}
	if c.Reply.Provider == "smtp" && c.Reply.SMTP.Host == "" {
		return fmt.Errorf("reply.smtp: host is required")
	}
	if (c.Reply.Provider == "resend" || c.Reply.Provider == "sendgrid") && c.Reply.APIKey == "" {
		return fmt.Errorf("reply: api_key is required for provider %q", c.Reply.Provider)
	}

	return nil
}

// ValidateInbox validates inbox configuration (only called when the watcher is used)
func (c *Config) ValidateInbox() error {
	if !c.Inbox.Enabled {
		return fmt.Errorf("inbox: watching is not enabled in config")
	}
	if c.Inbox.Email == "" {
		return fmt.Errorf("inbox: email address is required")
	}
	if c.Inbox.Password == "" {
		return fmt.Errorf("inbox: password (app password) is required")
	}
	if c.Inbox.Server == "" {
		return fmt.Errorf("inbox: IMAP server is required")
	}
	if c.Inbox.Port == 0 {
		return fmt.Errorf("inbox: IMAP port is required")
	}
	if c.Inbox.AutoReply && c.Reply.Provider == "" {
		return fmt.Errorf("inbox: auto_reply requires a reply provider")
	}
	return nil
}

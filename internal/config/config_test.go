package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if len(cfg.HuggingFace.Models) != 3 || cfg.HuggingFace.Models[0] != "facebook/bart-large-mnli" {
		t.Errorf("models = %v, want default zero-shot list", cfg.HuggingFace.Models)
	}
	if cfg.HuggingFace.GenerationModel != DefaultGenerationModel {
		t.Errorf("generation model = %q, want %q", cfg.HuggingFace.GenerationModel, DefaultGenerationModel)
	}
	if cfg.HuggingFace.TimeoutSec != 25 || cfg.HuggingFace.ModelLoadWaitSec != 12 {
		t.Errorf("timeouts = %d/%d, want 25/12", cfg.HuggingFace.TimeoutSec, cfg.HuggingFace.ModelLoadWaitSec)
	}
	if cfg.Limits.MinTextLength != 10 || cfg.Limits.MaxTextLength != 15000 {
		t.Errorf("limits = %d/%d, want 10/15000", cfg.Limits.MinTextLength, cfg.Limits.MaxTextLength)
	}
	if cfg.Inbox.Folder != "INBOX" || cfg.Inbox.ArchiveFolder != "Mailsift" {
		t.Errorf("folders = %q/%q, want INBOX/Mailsift", cfg.Inbox.Folder, cfg.Inbox.ArchiveFolder)
	}
	if cfg.Web.Port != 8433 || cfg.Web.RateLimitPerMin != 30 {
		t.Errorf("web = %d/%d, want 8433/30", cfg.Web.Port, cfg.Web.RateLimitPerMin)
	}
	if cfg.HistoryDB == "" {
		t.Error("history db path was not defaulted")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		HuggingFace: HuggingFaceConfig{Models: []string{"acme/custom-mnli"}, TimeoutSec: 5},
		Web:         WebConfig{Port: 9000},
	}
	cfg.ApplyDefaults()

	if len(cfg.HuggingFace.Models) != 1 || cfg.HuggingFace.Models[0] != "acme/custom-mnli" {
		t.Errorf("models = %v, want custom list preserved", cfg.HuggingFace.Models)
	}
	if cfg.HuggingFace.TimeoutSec != 5 {
		t.Errorf("timeout = %d, want 5", cfg.HuggingFace.TimeoutSec)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Web.Port)
	}
}

func TestApplyDefaultsProviderServers(t *testing.T) {
	tests := []struct {
		provider string
		server   string
	}{
		{"gmail", "imap.gmail.com"},
		{"outlook", "outlook.office365.com"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := Config{Inbox: InboxConfig{Provider: tt.provider}}
			cfg.ApplyDefaults()
			if cfg.Inbox.Server != tt.server || cfg.Inbox.Port != 993 {
				t.Errorf("server/port = %q/%d, want %q/993", cfg.Inbox.Server, cfg.Inbox.Port, tt.server)
			}
		})
	}
}

func validConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "remote tier without key",
			mutate:  func(c *Config) { c.HuggingFace.Enabled = true },
			wantErr: "api_key is required",
		},
		{
			name:    "unknown reply provider",
			mutate:  func(c *Config) { c.Reply.Provider = "pigeon" },
			wantErr: "unknown provider",
		},
		{
			name: "smtp without host",
			mutate: func(c *Config) {
				c.Reply.Provider = "smtp"
				c.Reply.From = "triagem@example.com"
			},
			wantErr: "host is required",
		},
		{
			name: "resend without api key",
			mutate: func(c *Config) {
				c.Reply.Provider = "resend"
				c.Reply.From = "triagem@example.com"
			},
			wantErr: "api_key is required",
		},
		{
			name:    "provider without from address",
			mutate:  func(c *Config) { c.Reply.Provider = "sendgrid"; c.Reply.APIKey = "SG.x" },
			wantErr: "from address is required",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.Limits.MaxTextLength = 5 },
			wantErr: "max_text_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInbox(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateInbox(); err == nil {
		t.Error("expected error when watching is disabled")
	}

	cfg.Inbox.Enabled = true
	cfg.Inbox.Email = "triagem@example.com"
	cfg.Inbox.Password = "app-password"
	cfg.Inbox.Server = "imap.example.com"
	cfg.Inbox.Port = 993
	if err := cfg.ValidateInbox(); err != nil {
		t.Fatalf("ValidateInbox: %v", err)
	}

	cfg.Inbox.AutoReply = true
	if err := cfg.ValidateInbox(); err == nil || !strings.Contains(err.Error(), "reply provider") {
		t.Errorf("err = %v, want auto_reply provider error", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := validConfig()
	cfg.HuggingFace.Enabled = true
	cfg.HuggingFace.APIKey = "hf_testtoken"
	cfg.Lexicon.ProductiveWords = []string{"chamado", "reembolso"}

	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %04o, want 0600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.HuggingFace.APIKey != "hf_testtoken" {
		t.Errorf("api key = %q, want round-tripped value", loaded.HuggingFace.APIKey)
	}
	if len(loaded.Lexicon.ProductiveWords) != 2 {
		t.Errorf("productive words = %v, want 2 entries", loaded.Lexicon.ProductiveWords)
	}
	if loaded.Web.Port != 8433 {
		t.Errorf("port = %d, want defaults applied on load", loaded.Web.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

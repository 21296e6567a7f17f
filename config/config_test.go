package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
)

func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "spotlight"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cmd := newTestCmd(t, "--mbox-root", "/tmp/mail")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Backend != "mbox" {
		t.Errorf("Backend = %q, want mbox", cfg.Backend)
	}
	if !cfg.Recurse {
		t.Error("Recurse should default to true")
	}
	if !cfg.ExcludeInline {
		t.Error("ExcludeInline should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "mbox without root",
			args:    nil,
			wantErr: "--mbox-root",
		},
		{
			name:    "imap without host",
			args:    []string{"--backend", "imap", "--imap-user", "u", "--imap-pass", "p"},
			wantErr: "--imap-host",
		},
		{
			name:    "imap without user",
			args:    []string{"--backend", "imap", "--imap-host", "h", "--imap-pass", "p"},
			wantErr: "--imap-user",
		},
		{
			name:    "bad port",
			args:    []string{"--backend", "imap", "--imap-host", "h", "--imap-user", "u", "--imap-pass", "p", "--imap-port", "99999"},
			wantErr: "--imap-port",
		},
		{
			name:    "unknown backend",
			args:    []string{"--backend", "pop3"},
			wantErr: "--backend",
		},
		{
			name:    "bad tri-state",
			args:    []string{"--mbox-root", "/m", "--has-attachments", "maybe"},
			wantErr: "--has-attachments",
		},
		{
			name:    "negative max items",
			args:    []string{"--mbox-root", "/m", "--max-items", "-1"},
			wantErr: "--max-items",
		},
		{
			name:    "unknown preset",
			args:    []string{"--mbox-root", "/m", "--types", "video"},
			wantErr: "preset",
		},
		{
			name:    "bad apply mode",
			args:    []string{"--mbox-root", "/m", "--apply-type-to-selection", "sometimes"},
			wantErr: "--apply-type-to-selection",
		},
		{
			name:    "bad log level",
			args:    []string{"--mbox-root", "/m", "--log-level", "loud"},
			wantErr: "--log-level",
		},
		{
			name:    "bad start date",
			args:    []string{"--mbox-root", "/m", "--start-date", "2024-01-15"},
			wantErr: "--start-date",
		},
		{
			name:    "end before start",
			args:    []string{"--mbox-root", "/m", "--start-date", "15-01-2024", "--end-date", "14-01-2024"},
			wantErr: "before",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCmd(t, tt.args...)
			_, err := LoadConfig(cmd)
			if err == nil {
				t.Fatal("LoadConfig() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigPasswordFromEnv(t *testing.T) {
	t.Setenv("IMAP_PASS", "sekrit")
	cmd := newTestCmd(t, "--backend", "imap", "--imap-host", "mail.example.com", "--imap-user", "bob")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.IMAPPass != "sekrit" {
		t.Errorf("IMAPPass = %q, want env fallback", cfg.IMAPPass)
	}
}

func TestLoadConfigFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotlight.yaml")
	yaml := "mbox-root: /var/mail/tree\nsubject: invoice\nmax-items: 25\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Flag beats file, file beats default.
	cmd := newTestCmd(t, "--config", path, "--subject", "receipt")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MboxRoot != "/var/mail/tree" {
		t.Errorf("MboxRoot = %q, want value from file", cfg.MboxRoot)
	}
	if cfg.MaxItems != 25 {
		t.Errorf("MaxItems = %d, want 25 from file", cfg.MaxItems)
	}
	if cfg.Subject != "receipt" {
		t.Errorf("Subject = %q, want flag override", cfg.Subject)
	}
}

func TestFilterOptionsDates(t *testing.T) {
	cmd := newTestCmd(t, "--mbox-root", "/m", "--start-date", "15-01-2024", "--end-date", "20-02-2024")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	opts, err := cfg.FilterOptions()
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if opts.Start == nil || opts.End == nil {
		t.Fatal("Start/End should be set")
	}
	wantStart := time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)
	if !opts.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", opts.Start, wantStart)
	}
	wantEnd := time.Date(2024, 2, 20, 23, 59, 59, 0, time.Local)
	if !opts.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", opts.End, wantEnd)
	}
}

func TestFilterOptionsEndDateClock(t *testing.T) {
	// 31-03-2024 is a DST transition day in much of Europe; the end bound
	// must still land on that day's 23:59:59 local time, not drift into
	// the next day because the local day was only 23 hours long.
	cmd := newTestCmd(t, "--mbox-root", "/m", "--end-date", "31-03-2024")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	opts, err := cfg.FilterOptions()
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if opts.End == nil {
		t.Fatal("End should be set")
	}
	end := *opts.End
	if end.Year() != 2024 || end.Month() != time.March || end.Day() != 31 ||
		end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
		t.Errorf("End = %v, want 31 Mar 2024 23:59:59 local", end)
	}
}

func TestFilterOptionsExtensions(t *testing.T) {
	cmd := newTestCmd(t, "--mbox-root", "/m",
		"--types", "pdf,excel",
		"--ext", "PDF, .csv; txt")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	opts, err := cfg.FilterOptions()
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	want := []string{".pdf", ".xls", ".xlsx", ".csv", ".txt"}
	if len(opts.AllowedExts) != len(want) {
		t.Fatalf("AllowedExts = %v, want %v", opts.AllowedExts, want)
	}
	for i := range want {
		if opts.AllowedExts[i] != want[i] {
			t.Errorf("AllowedExts[%d] = %q, want %q", i, opts.AllowedExts[i], want[i])
		}
	}
}

func TestFilterOptionsApplyTypeCoupling(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{
			name: "auto follows has-attachments yes",
			args: []string{"--has-attachments", "yes"},
			want: true,
		},
		{
			name: "auto follows has-attachments any",
			args: []string{"--has-attachments", "any"},
			want: false,
		},
		{
			name: "explicit no overrides coupling",
			args: []string{"--has-attachments", "yes", "--apply-type-to-selection", "no"},
			want: false,
		},
		{
			name: "explicit yes without attachment gate",
			args: []string{"--apply-type-to-selection", "yes"},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--mbox-root", "/m"}, tt.args...)
			cmd := newTestCmd(t, args...)
			cfg, err := LoadConfig(cmd)
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			opts, err := cfg.FilterOptions()
			if err != nil {
				t.Fatalf("FilterOptions() error = %v", err)
			}
			if opts.ApplyTypeToSelection != tt.want {
				t.Errorf("ApplyTypeToSelection = %v, want %v", opts.ApplyTypeToSelection, tt.want)
			}
		})
	}
}

func TestFilterOptionsTriStates(t *testing.T) {
	cmd := newTestCmd(t, "--mbox-root", "/m", "--has-attachments", "yes", "--unread", "no")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	opts, err := cfg.FilterOptions()
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if opts.HasAttachments != model.TriYes {
		t.Errorf("HasAttachments = %v, want TriYes", opts.HasAttachments)
	}
	if opts.Unread != model.TriNo {
		t.Errorf("Unread = %v, want TriNo", opts.Unread)
	}
}

func TestOutputNaming(t *testing.T) {
	cmd := newTestCmd(t, "--mbox-root", "/m",
		"--output", "/tmp/out",
		"--start-date", "01-02-2024", "--end-date", "09-02-2024")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got := cfg.ResultsDir(); got != filepath.Join("/tmp/out", "Emails 01-02-2024 - 09-02-2024") {
		t.Errorf("ResultsDir() = %q", got)
	}
	if got := cfg.AttachmentsDir(); got != filepath.Join("/tmp/out", "Attachments 01-02-2024 - 09-02-2024") {
		t.Errorf("AttachmentsDir() = %q", got)
	}
}

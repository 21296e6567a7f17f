// Package config turns CLI flags and an optional YAML config file into
// the immutable options an extraction run consumes. Flags win over the
// config file, which wins over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/names"
)

// dateFormat is the DD-MM-YYYY form dates are entered in.
const dateFormat = "02-01-2006"

// typePresets maps the --types preset names to their extension sets.
var typePresets = map[string][]string{
	"pdf":        {".pdf"},
	"images":     {".png", ".jpg", ".jpeg", ".gif", ".bmp"},
	"excel":      {".xls", ".xlsx"},
	"documents":  {".doc", ".docx"},
	"powerpoint": {".ppt", ".pptx"},
	"archives":   {".zip", ".rar", ".7z"},
}

// Config captures all options required to run an extraction.
type Config struct {
	Backend string `mapstructure:"backend"`

	MboxRoot string `mapstructure:"mbox-root"`

	IMAPHost           string `mapstructure:"imap-host"`
	IMAPPort           int    `mapstructure:"imap-port"`
	IMAPUser           string `mapstructure:"imap-user"`
	IMAPPass           string `mapstructure:"imap-pass"`
	UseTLS             bool   `mapstructure:"use-tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure-skip-verify"`

	Store          string `mapstructure:"store"`
	Folder         string `mapstructure:"folder"`
	Recurse        bool   `mapstructure:"recurse"`
	StartDate      string `mapstructure:"start-date"`
	EndDate        string `mapstructure:"end-date"`
	HasAttachments string `mapstructure:"has-attachments"`
	Unread         string `mapstructure:"unread"`
	Subject        string `mapstructure:"subject"`
	From           string `mapstructure:"from"`
	MaxItems       int    `mapstructure:"max-items"`
	RequireRunning bool   `mapstructure:"require-running"`

	BodyPreview      bool     `mapstructure:"body-preview"`
	AttachmentNames  bool     `mapstructure:"attachment-names"`
	ResolveAddresses bool     `mapstructure:"resolve-addresses"`
	Types            []string `mapstructure:"types"`
	Exts             string   `mapstructure:"ext"`
	ExcludeInline    bool     `mapstructure:"exclude-inline"`

	SaveAttachments bool   `mapstructure:"save-attachments"`
	OutputDir       string `mapstructure:"output"`

	// ApplyTypeToSelection is "auto", "yes" or "no". "auto" couples the
	// type gate to has-attachments=yes, which is how the equivalent manual
	// workflow behaves.
	ApplyTypeToSelection string `mapstructure:"apply-type-to-selection"`

	LogLevel string `mapstructure:"log-level"`
	LogFile  string `mapstructure:"log-file"`
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("config", "", "Optional YAML config file; flags override its values")
	flags.String("backend", "mbox", "Mail store backend: imap or mbox")

	flags.String("mbox-root", "", "Root directory of the mbox folder tree (mbox backend)")

	flags.String("imap-host", "", "IMAP server hostname (imap backend)")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")

	flags.String("store", "", "Store name; empty selects the backend's default store")
	flags.String("folder", "", "Slash-separated folder path; empty scans from the store root")
	flags.Bool("recurse", true, "Include subfolders of the selected folder")
	flags.String("start-date", "", "Earliest received date, DD-MM-YYYY (inclusive)")
	flags.String("end-date", "", "Latest received date, DD-MM-YYYY (inclusive)")
	flags.String("has-attachments", "any", "Require attachments: any, yes or no")
	flags.String("unread", "any", "Require unread state: any, yes or no")
	flags.String("subject", "", "Case-insensitive substring the subject must contain")
	flags.String("from", "", "Case-insensitive substring the sender name or address must contain")
	flags.Int("max-items", 0, "Stop after this many matches across all folders (0 = unbounded)")
	flags.Bool("require-running", false, "Fail instead of retrying when the store is unreachable")

	flags.Bool("body-preview", false, "Include a plain-text body preview column")
	flags.Bool("attachment-names", true, "Include the attachment names column")
	flags.Bool("resolve-addresses", false, "Resolve provider-internal sender addresses to routable form")
	flags.StringSlice("types", nil, "Attachment type presets: pdf, images, excel, documents, powerpoint, archives")
	flags.String("ext", "", "Additional attachment extensions, comma or semicolon separated")
	flags.Bool("exclude-inline", true, "Skip inline attachments (signature images and the like)")

	flags.Bool("save-attachments", false, "Save matching attachments to per-message subfolders")
	flags.String("output", ".", "Base directory for the result workbook and attachment folders")
	flags.String("apply-type-to-selection", "auto", "Reject emails with no type-matching attachment: auto, yes or no")

	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-file", "", "Optional file to mirror log output to")
}

// LoadConfig merges the parsed Cobra flags with the optional config file
// and validates the result.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	v := viper.New()

	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return Config{}, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.IMAPPass == "" {
		cfg.IMAPPass = os.Getenv("IMAP_PASS")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch cfg.Backend {
	case "mbox":
		if cfg.MboxRoot == "" {
			return fmt.Errorf("--mbox-root is required with the mbox backend")
		}
	case "imap":
		if cfg.IMAPHost == "" {
			return fmt.Errorf("--imap-host is required with the imap backend")
		}
		if cfg.IMAPUser == "" {
			return fmt.Errorf("--imap-user is required with the imap backend")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid --backend: %s (want imap or mbox)", cfg.Backend)
	}

	if _, err := model.ParseTri(cfg.HasAttachments); err != nil {
		return fmt.Errorf("--has-attachments: %w", err)
	}
	if _, err := model.ParseTri(cfg.Unread); err != nil {
		return fmt.Errorf("--unread: %w", err)
	}
	if cfg.MaxItems < 0 {
		return fmt.Errorf("--max-items must not be negative")
	}
	for _, preset := range cfg.Types {
		if _, ok := typePresets[strings.ToLower(strings.TrimSpace(preset))]; !ok {
			return fmt.Errorf("unknown --types preset: %s", preset)
		}
	}
	switch strings.ToLower(cfg.ApplyTypeToSelection) {
	case "auto", "yes", "no":
	default:
		return fmt.Errorf("invalid --apply-type-to-selection: %s (want auto, yes or no)", cfg.ApplyTypeToSelection)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	if _, _, err := parseDates(cfg.StartDate, cfg.EndDate); err != nil {
		return err
	}

	return nil
}

// parseDates widens the inclusive DD-MM-YYYY bounds to start and end of
// day.
func parseDates(start, end string) (*time.Time, *time.Time, error) {
	var startAt, endAt *time.Time
	if start != "" {
		t, err := time.ParseInLocation(dateFormat, start, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --start-date %q (want DD-MM-YYYY)", start)
		}
		startAt = &t
	}
	if end != "" {
		t, err := time.ParseInLocation(dateFormat, end, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --end-date %q (want DD-MM-YYYY)", end)
		}
		// Rebuilding the wall-clock time keeps the bound at 23:59:59 even on
		// days where a DST transition makes the local day shorter or longer.
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.Local)
		endAt = &t
	}
	if startAt != nil && endAt != nil && endAt.Before(*startAt) {
		return nil, nil, fmt.Errorf("--end-date is before --start-date")
	}
	return startAt, endAt, nil
}

// allowedExts combines the selected presets with the custom extension
// list. Preset order is fixed so the resulting list is deterministic.
func (cfg Config) allowedExts() []string {
	var exts []string
	for _, preset := range []string{"pdf", "images", "excel", "documents", "powerpoint", "archives"} {
		for _, selected := range cfg.Types {
			if strings.EqualFold(strings.TrimSpace(selected), preset) {
				exts = append(exts, typePresets[preset]...)
				break
			}
		}
	}
	exts = append(exts, names.NormalizeExtensions(cfg.Exts)...)
	if len(exts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(exts))
	deduped := exts[:0]
	for _, ext := range exts {
		if seen[ext] {
			continue
		}
		seen[ext] = true
		deduped = append(deduped, ext)
	}
	return deduped
}

// rangeLabel names the output artifacts after the date range, falling
// back to today's date when no range is set.
func (cfg Config) rangeLabel() string {
	if cfg.StartDate != "" || cfg.EndDate != "" {
		return fmt.Sprintf("%s - %s", cfg.StartDate, cfg.EndDate)
	}
	return time.Now().Format(dateFormat)
}

// ResultsDir is the auto-named directory the CSV workbook goes to.
func (cfg Config) ResultsDir() string {
	return filepath.Join(cfg.OutputDir, "Emails "+cfg.rangeLabel())
}

// AttachmentsDir is the auto-named base directory for saved attachments.
func (cfg Config) AttachmentsDir() string {
	return filepath.Join(cfg.OutputDir, "Attachments "+cfg.rangeLabel())
}

// FilterOptions converts the validated configuration into the run options
// the engine consumes.
func (cfg Config) FilterOptions() (model.FilterOptions, error) {
	start, end, err := parseDates(cfg.StartDate, cfg.EndDate)
	if err != nil {
		return model.FilterOptions{}, err
	}
	hasAtt, err := model.ParseTri(cfg.HasAttachments)
	if err != nil {
		return model.FilterOptions{}, err
	}
	unread, err := model.ParseTri(cfg.Unread)
	if err != nil {
		return model.FilterOptions{}, err
	}

	exts := cfg.allowedExts()

	applyType := hasAtt == model.TriYes
	switch strings.ToLower(cfg.ApplyTypeToSelection) {
	case "yes":
		applyType = true
	case "no":
		applyType = false
	}

	return model.FilterOptions{
		Store:                cfg.Store,
		FolderPath:           strings.Trim(cfg.Folder, "/"),
		Start:                start,
		End:                  end,
		HasAttachments:       hasAtt,
		Unread:               unread,
		Recurse:              cfg.Recurse,
		SubjectContains:      strings.TrimSpace(cfg.Subject),
		FromContains:         strings.TrimSpace(cfg.From),
		MaxItems:             cfg.MaxItems,
		RequireRunning:       cfg.RequireRunning,
		WantBodyPreview:      cfg.BodyPreview,
		WantAttachmentNames:  cfg.AttachmentNames,
		ResolveAddresses:     cfg.ResolveAddresses,
		AllowedExts:          exts,
		ExcludeInline:        cfg.ExcludeInline,
		SaveAttachments:      cfg.SaveAttachments,
		AttachmentsDir:       cfg.AttachmentsDir(),
		ApplyTypeToSelection: applyType,
	}, nil
}

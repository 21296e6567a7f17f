package model

import (
	"fmt"
	"strings"
	"time"
)

// Tri is a three-valued filter switch: unset, required true, required false.
type Tri int

const (
	TriAny Tri = iota
	TriYes
	TriNo
)

// ParseTri converts a flag value ("any", "yes", "no") into a Tri.
func ParseTri(s string) (Tri, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return TriAny, nil
	case "yes", "true", "only":
		return TriYes, nil
	case "no", "false", "none":
		return TriNo, nil
	}
	return TriAny, fmt.Errorf("invalid tri-state value %q (want any, yes or no)", s)
}

func (t Tri) String() string {
	switch t {
	case TriYes:
		return "yes"
	case TriNo:
		return "no"
	}
	return "any"
}

// FilterOptions captures one extraction run's configuration. It is built
// once from the CLI/config layer and never mutated afterwards.
type FilterOptions struct {
	Store      string
	FolderPath string // "" = store root

	Start *time.Time // inclusive, already widened to start of day
	End   *time.Time // inclusive, already widened to end of day

	HasAttachments Tri
	Unread         Tri

	Recurse         bool
	SubjectContains string
	FromContains    string
	MaxItems        int // 0 = unbounded, counted globally across folders
	RequireRunning  bool

	WantBodyPreview     bool
	WantAttachmentNames bool
	ResolveAddresses    bool

	// AllowedExts is a lowercase dot-prefixed allow-list; nil accepts any
	// extension.
	AllowedExts     []string
	ExcludeInline   bool
	SaveAttachments bool
	AttachmentsDir  string

	// ApplyTypeToSelection gates *email* inclusion on the extension
	// allow-list. Only meaningful when HasAttachments is TriYes; it is kept
	// as its own field rather than inferred from that, since the two
	// concerns toggle independently.
	ApplyTypeToSelection bool
}

// Summary returns the filter configuration as ordered key/value pairs for
// the export's Filters section.
func (o FilterOptions) Summary() [][2]string {
	format := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("02-01-2006 15:04:05")
	}
	folder := o.FolderPath
	if folder == "" {
		folder = "(root)"
	}
	types := "Any"
	if len(o.AllowedExts) > 0 {
		types = strings.Join(o.AllowedExts, ", ")
	}
	return [][2]string{
		{"Store", o.Store},
		{"Folder", folder},
		{"Include Subfolders", fmt.Sprintf("%t", o.Recurse)},
		{"Start", format(o.Start)},
		{"End", format(o.End)},
		{"Has Attachments", o.HasAttachments.String()},
		{"Unread Only", o.Unread.String()},
		{"Subject Contains", o.SubjectContains},
		{"From Contains", o.FromContains},
		{"Max Items", fmt.Sprintf("%d", o.MaxItems)},
		{"Body Preview Included", fmt.Sprintf("%t", o.WantBodyPreview)},
		{"Attachment Names Included", fmt.Sprintf("%t", o.WantAttachmentNames)},
		{"Resolve Addresses", fmt.Sprintf("%t", o.ResolveAddresses)},
		{"Selected Types", types},
		{"Exclude Inline Images", fmt.Sprintf("%t", o.ExcludeInline)},
		{"Save Attachments", fmt.Sprintf("%t", o.SaveAttachments)},
		{"Attachments Base Folder", o.AttachmentsDir},
		{"Apply Type To Email Selection", fmt.Sprintf("%t", o.ApplyTypeToSelection)},
	}
}

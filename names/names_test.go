package names

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeForFS(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{
			name:   "unsafe characters replaced",
			in:     `Re: invoice <Q3/2024> | "draft"?`,
			maxLen: 80,
			want:   "Re_ invoice _Q3_2024_ _ _draft_",
		},
		{
			name:   "whitespace collapsed",
			in:     "weekly   report \t 2024",
			maxLen: 80,
			want:   "weekly report 2024",
		},
		{
			name:   "trailing dots and spaces stripped",
			in:     "pending... ",
			maxLen: 80,
			want:   "pending",
		},
		{
			name:   "truncated to max length",
			in:     strings.Repeat("a", 100),
			maxLen: 10,
			want:   strings.Repeat("a", 10),
		},
		{
			name:   "truncation counts characters not bytes",
			in:     "aaaaaaaaaéxxxx",
			maxLen: 10,
			want:   "aaaaaaaaaé",
		},
		{
			name:   "multi-byte subject truncated whole",
			in:     "résumé für Müller 2024 final version",
			maxLen: 17,
			want:   "résumé für Müller",
		},
		{
			name:   "empty input yields fallback",
			in:     "",
			maxLen: 80,
			want:   FallbackName,
		},
		{
			name:   "only unsafe and spaces still nonempty",
			in:     `///`,
			maxLen: 80,
			want:   "_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeForFS(tt.in, tt.maxLen)
			if got != tt.want {
				t.Errorf("SanitizeForFS(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
			if utf8.RuneCountInString(got) > tt.maxLen {
				t.Errorf("result %q longer than max %d", got, tt.maxLen)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
			if strings.ContainsAny(got, `<>:"/\|?*`) {
				t.Errorf("result %q contains unsafe characters", got)
			}
		})
	}
}

func TestSanitizeForFS_Idempotent(t *testing.T) {
	inputs := []string{
		`Re: invoice <Q3/2024>`,
		"weekly   report",
		"",
		"already clean",
	}
	for _, in := range inputs {
		once := SanitizeForFS(in, 60)
		twice := SanitizeForFS(once, 60)
		if once != twice {
			t.Errorf("SanitizeForFS not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeExtensions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "mixed separators and case",
			raw:  "PDF, .docx;xls , ",
			want: []string{".pdf", ".docx", ".xls"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "single bare extension",
			raw:  "zip",
			want: []string{".zip"},
		},
		{
			name: "whitespace separated",
			raw:  ".png .jpg",
			want: []string{".png", ".jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeExtensions(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeExtensions(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDedupPath(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "fresh.txt")
	if got := DedupPath(fresh); got != fresh {
		t.Errorf("DedupPath on missing path = %q, want unchanged %q", got, fresh)
	}

	existing := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "a (2).txt")
	for _, p := range []string{existing, second} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", p, err)
		}
	}

	want := filepath.Join(dir, "a (3).txt")
	if got := DedupPath(existing); got != want {
		t.Errorf("DedupPath(%q) = %q, want %q", existing, got, want)
	}

	// Deterministic given unchanged filesystem state.
	if got := DedupPath(existing); got != want {
		t.Errorf("DedupPath second call = %q, want %q", got, want)
	}
}

func TestDedupPath_NoExtension(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "report")
	if err := os.WriteFile(base, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
	want := filepath.Join(dir, "report (2)")
	if got := DedupPath(base); got != want {
		t.Errorf("DedupPath(%q) = %q, want %q", base, got, want)
	}
}

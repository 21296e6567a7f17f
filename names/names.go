// Package names holds the pure string helpers shared by the attachment
// persister and the export layer: filesystem-safe sanitization, extension
// list normalization and collision-free path generation.
package names

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FallbackName is returned by SanitizeForFS when nothing survives
// sanitization.
const FallbackName = "no_subject"

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]+`)
	spaceRuns   = regexp.MustCompile(`\s+`)
	extSplit    = regexp.MustCompile(`[,\s;]+`)
)

// SanitizeForFS makes s safe to use as a file or directory name: the
// characters <>:"/\|?* become underscores, whitespace runs collapse to a
// single space, trailing dots and spaces are stripped and the result is
// truncated to maxLen characters. Sanitizing an already-sanitized string of length
// <= maxLen returns it unchanged.
func SanitizeForFS(s string, maxLen int) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.TrimSpace(spaceRuns.ReplaceAllString(s, " "))
	s = strings.TrimRight(s, ". ")
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = strings.TrimRight(string([]rune(s)[:maxLen]), ". ")
	}
	if s == "" {
		return FallbackName
	}
	return s
}

// NormalizeExtensions splits raw on commas, semicolons and whitespace,
// lowercases each part, drops empties and guarantees a leading dot:
// "PDF, .docx;xls" -> [".pdf", ".docx", ".xls"]. Returns nil when nothing
// remains.
func NormalizeExtensions(raw string) []string {
	var out []string
	for _, part := range extSplit.Split(strings.ToLower(strings.TrimSpace(raw)), -1) {
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}

// DedupPath returns path unchanged when it does not exist yet, otherwise
// the first unused variant with " (N)" inserted before the extension,
// starting at N=2.
func DedupPath(path string) string {
	if !exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FileURL renders path as a file:// URL usable as a spreadsheet hyperlink
// target.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file:///" + strings.ReplaceAll(abs, `\`, "/")
}

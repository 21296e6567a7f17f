// Package classify inspects a message's attachment list: it drops inline
// attachments when asked, normalizes filenames and matches each attachment
// against the configured extension allow-list.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

// fallbackFilename is used when the store reports an empty attachment name.
const fallbackFilename = "attachment"

// Info is one classified attachment. Ordering follows the store's
// enumeration order so downstream naming stays deterministic.
type Info struct {
	Filename string
	Inline   bool

	// Matches is true when no allow-list is configured or the lowercase
	// extension is in it.
	Matches bool

	Handle store.Attachment
}

// Enumerate classifies the item's attachments. Inline attachments are
// skipped entirely when excludeInline is set: they contribute to neither
// the returned list nor any match. allowedExts nil means any extension
// matches. An enumeration failure returns the attachments read so far.
func Enumerate(item store.Item, allowedExts []string, excludeInline bool) []Info {
	handles, err := item.Attachments()
	if err != nil {
		handles = nil
	}

	var infos []Info
	for _, handle := range handles {
		inline := handle.Inline()
		if excludeInline && inline {
			continue
		}
		filename := strings.TrimSpace(handle.Filename())
		if filename == "" {
			filename = fallbackFilename
		}
		infos = append(infos, Info{
			Filename: filename,
			Inline:   inline,
			Matches:  extMatches(filename, allowedExts),
			Handle:   handle,
		})
	}
	return infos
}

// AnyMatch reports whether at least one classified attachment passes the
// allow-list.
func AnyMatch(infos []Info) bool {
	for _, info := range infos {
		if info.Matches {
			return true
		}
	}
	return false
}

// MatchedNames returns the filenames of matching attachments, in order.
// With no allow-list configured every attachment matches.
func MatchedNames(infos []Info) []string {
	var names []string
	for _, info := range infos {
		if info.Matches {
			names = append(names, info.Filename)
		}
	}
	return names
}

func extMatches(filename string, allowedExts []string) bool {
	if len(allowedExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return true
		}
	}
	return false
}

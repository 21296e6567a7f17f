// Package persist writes a message's matching attachments into a
// deterministic per-message subfolder under a configured base directory.
package persist

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/griffgriff5000/Spotlight-on-Outlook/classify"
	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/names"
)

const (
	// timestampFormat names the per-message subfolder prefix.
	timestampFormat = "20060102_150405"

	// noDateToken replaces the timestamp when the store has no received
	// instant for the message.
	noDateToken = "nodate"

	subjectMaxLen  = 60
	filenameMaxLen = 120
)

// Saver persists attachments under BaseDir. The base directory and each
// per-message subfolder are created lazily, on the first qualifying
// attachment only.
type Saver struct {
	BaseDir string
	Logger  *slog.Logger
}

// Result reports what one Save call wrote. Dir is empty when nothing was
// saved; Paths and Names are parallel.
type Result struct {
	Dir   string
	Paths []string
	Names []string
}

// SubfolderName computes the deterministic per-message directory name:
// "{timestamp}_{sanitizedSubject60}_{hash8}". The hash disambiguates
// otherwise-identical names; it is derived from the stable entry ID
// (falling back to subject, then timestamp) purely for uniqueness within
// a run, and carries no integrity guarantee.
func SubfolderName(view model.MessageView) string {
	ts := noDateToken
	if view.HasReceived {
		ts = view.Received.Format(timestampFormat)
	}

	seed := view.ID
	if seed == "" {
		seed = view.Subject
	}
	if seed == "" {
		seed = ts
	}
	sum := sha1.Sum([]byte(seed))
	hash8 := hex.EncodeToString(sum[:])[:8]

	return fmt.Sprintf("%s_%s_%s", ts, names.SanitizeForFS(view.Subject, subjectMaxLen), hash8)
}

// Save writes the message's attachments. When filterToMatches is set only
// entries with Matches=true are written (the allow-list case). Individual
// write failures are logged and skipped; the remaining attachments of the
// same message still get written.
func (s *Saver) Save(view model.MessageView, infos []classify.Info, filterToMatches bool) Result {
	var result Result
	subfolder := SubfolderName(view)

	for _, info := range infos {
		if filterToMatches && !info.Matches {
			continue
		}

		if result.Dir == "" {
			dir := filepath.Join(s.BaseDir, subfolder)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				s.logError("create attachment folder", dir, err)
				return result
			}
			result.Dir = dir
		}

		filename := info.Filename
		if filepath.Ext(filename) == "" {
			filename += ".bin"
		}
		outPath := names.DedupPath(filepath.Join(result.Dir, names.SanitizeForFS(filename, filenameMaxLen)))

		if err := info.Handle.SaveTo(outPath); err != nil {
			s.logError("save attachment", info.Filename, err)
			continue
		}

		result.Paths = append(result.Paths, outPath)
		result.Names = append(result.Names, filepath.Base(outPath))
	}

	return result
}

func (s *Saver) logError(what, subject string, err error) {
	if s.Logger != nil {
		s.Logger.Warn(what+" failed", "name", subject, "err", err)
	}
}

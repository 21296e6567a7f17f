// Package traverse walks the folder tree with an explicit work-list so
// deeply nested stores never grow the call stack.
package traverse

import (
	"context"
	"errors"
	"log/slog"

	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

// SkipAll stops the walk early without reporting an error, the way the
// global item cap does.
var SkipAll = errors.New("skip all remaining folders")

// WalkFunc receives each folder with its logical path. Returning SkipAll
// ends the walk; any other error aborts it.
type WalkFunc func(folder store.Folder, path string) error

type entry struct {
	folder store.Folder
	path   string
}

// Walk yields the root and, when recurse is set, every descendant,
// building each descendant's logical path as parent/child. Sibling order
// is unspecified but every folder is visited at most once: each level's
// child list is snapshotted at entry, so an inconsistent collaborator can
// not loop the walk. A failure listing one folder's children is logged
// and that subtree's descendants are skipped; the walk continues.
func Walk(ctx context.Context, root store.Folder, rootPath string, recurse bool, logger *slog.Logger, fn WalkFunc) error {
	if rootPath == "" {
		rootPath = root.Name()
	}

	stack := []entry{{folder: root, path: rootPath}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(current.folder, current.path); err != nil {
			if errors.Is(err, SkipAll) {
				return nil
			}
			return err
		}

		if !recurse {
			return nil
		}

		children, err := current.folder.Children(ctx)
		if err != nil {
			if logger != nil {
				logger.Warn("list child folders failed", "folder", current.path, "err", err)
			}
			continue
		}
		for _, child := range children {
			path := child.Name()
			if current.path != "" {
				path = current.path + "/" + child.Name()
			}
			stack = append(stack, entry{folder: child, path: path})
		}
	}
	return nil
}

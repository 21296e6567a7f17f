// Package mboxstore exposes a directory tree of mbox files as a mail
// store. A folder named X keeps its messages in "X.mbox" and its child
// folders inside a sibling directory "X/"; the configured root directory
// is the store root. Besides offline use this backend is what the
// end-to-end tests scan.
package mboxstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/restrict"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

const mboxExt = ".mbox"

// Store opens sessions over the directory at Root.
type Store struct {
	Root   string
	Logger *slog.Logger
}

func (s *Store) Connect(_ context.Context, _ bool) (store.Session, error) {
	info, err := os.Stat(s.Root)
	if err != nil {
		return nil, &store.ConnectionError{Backend: "mbox", Err: err}
	}
	if !info.IsDir() {
		return nil, &store.ConnectionError{Backend: "mbox", Err: fmt.Errorf("%s is not a directory", s.Root)}
	}
	return &session{root: s.Root, logger: s.Logger}, nil
}

type session struct {
	root   string
	logger *slog.Logger
}

func (s *session) StoreNames(_ context.Context) ([]string, error) {
	return []string{filepath.Base(s.root)}, nil
}

func (s *session) ResolveFolder(ctx context.Context, storeName, folderPath string) (store.Folder, error) {
	if storeName != "" && storeName != filepath.Base(s.root) {
		return nil, &store.ResolutionError{Kind: "store", Name: storeName}
	}

	var current store.Folder = &folder{
		name:     filepath.Base(s.root),
		childDir: s.root,
		logger:   s.logger,
	}
	for _, part := range strings.Split(strings.Trim(folderPath, "/"), "/") {
		if part == "" {
			continue
		}
		children, err := current.Children(ctx)
		if err != nil {
			return nil, err
		}
		var next store.Folder
		for _, child := range children {
			if child.Name() == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil, &store.ResolutionError{Kind: "folder", Name: folderPath}
		}
		current = next
	}
	return current, nil
}

func (s *session) Close() error { return nil }

// folder is one node of the tree. mboxFile is empty for directory-only
// folders (including the root), which carry no messages of their own.
type folder struct {
	name     string
	mboxFile string
	childDir string
	logger   *slog.Logger
}

func (f *folder) Name() string { return f.name }

func (f *folder) Children(_ context.Context) ([]store.Folder, error) {
	if f.childDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(f.childDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.childDir, err)
	}

	seen := make(map[string]bool)
	var kids []store.Folder
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), mboxExt) {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		seen[base] = true
		kids = append(kids, &folder{
			name:     base,
			mboxFile: filepath.Join(f.childDir, name),
			childDir: filepath.Join(f.childDir, base),
			logger:   f.logger,
		})
	}
	// Directories without a paired mbox file are folders with children
	// but no messages.
	for _, entry := range entries {
		if !entry.IsDir() || seen[entry.Name()] {
			continue
		}
		kids = append(kids, &folder{
			name:     entry.Name(),
			childDir: filepath.Join(f.childDir, entry.Name()),
			logger:   f.logger,
		})
	}

	sort.Slice(kids, func(i, j int) bool { return kids[i].Name() < kids[j].Name() })
	return kids, nil
}

func (f *folder) Items(ctx context.Context, q store.ItemQuery) (store.Cursor, error) {
	if f.mboxFile == "" {
		return &cursor{}, nil
	}

	file, err := os.Open(f.mboxFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.mboxFile, err)
	}
	defer file.Close()

	reader := mbox.NewReader(file)
	var items []*item
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("message %d in %s: %w", idx, f.mboxFile, err)
		}
		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return nil, fmt.Errorf("message %d read: %w", idx, err)
		}
		parsed := parseItem(raw)
		if parsed == nil {
			if f.logger != nil {
				f.logger.Warn("unparsable message skipped", "mbox", f.mboxFile, "index", idx)
			}
			continue
		}
		if !matchesRestriction(parsed, q.Restriction) {
			continue
		}
		items = append(items, parsed)
	}

	if q.NewestFirst {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].received().After(items[j].received())
		})
	}
	return &cursor{items: items}, nil
}

// matchesRestriction applies the server-side pre-filter. Attachment
// presence is evaluated exactly here since parsing already walked the
// parts; date and unread bounds use the parsed header.
func matchesRestriction(it *item, r *restrict.Restriction) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && (!it.hasReceived() || it.received().Before(*r.Start)) {
		return false
	}
	if r.End != nil && (!it.hasReceived() || it.received().After(*r.End)) {
		return false
	}
	switch r.HasAttachments {
	case model.TriYes:
		if it.AttachmentCount() == 0 {
			return false
		}
	case model.TriNo:
		if it.AttachmentCount() > 0 {
			return false
		}
	}
	switch r.Unread {
	case model.TriYes:
		if !it.unread() {
			return false
		}
	case model.TriNo:
		if it.unread() {
			return false
		}
	}
	return true
}

type cursor struct {
	items []*item
	pos   int
}

func (c *cursor) Next() (store.Item, error) {
	if c.pos >= len(c.items) {
		return nil, io.EOF
	}
	it := c.items[c.pos]
	c.pos++
	return it, nil
}

func (c *cursor) Close() error { return nil }

// Package storetest provides an in-memory store implementation for tests:
// scripted folder trees, items and attachments, with injectable failures
// and call recording.
package storetest

import (
	"context"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

// Session implements store.Session over scripted folder trees keyed by
// store name.
type Session struct {
	Roots  map[string]*Folder
	Closed bool
}

func (s *Session) StoreNames(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.Roots))
	for name := range s.Roots {
		names = append(names, name)
	}
	return names, nil
}

func (s *Session) ResolveFolder(_ context.Context, storeName, folderPath string) (store.Folder, error) {
	root, ok := s.Roots[storeName]
	if !ok {
		return nil, &store.ResolutionError{Kind: "store", Name: storeName}
	}
	folder := root
	for _, part := range strings.Split(strings.Trim(folderPath, "/"), "/") {
		if part == "" {
			continue
		}
		var next *Folder
		for _, kid := range folder.Kids {
			if kid.FolderName == part {
				next = kid
				break
			}
		}
		if next == nil {
			return nil, &store.ResolutionError{Kind: "folder", Name: folderPath}
		}
		folder = next
	}
	return folder, nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

// Folder implements store.Folder. OpenCount records how often a cursor was
// requested, LastQuery the most recent query.
type Folder struct {
	FolderName  string
	Kids        []*Folder
	Msgs        []*Item
	ItemsErr    error
	ChildrenErr error

	OpenCount int
	LastQuery store.ItemQuery
}

func (f *Folder) Name() string { return f.FolderName }

func (f *Folder) Children(_ context.Context) ([]store.Folder, error) {
	if f.ChildrenErr != nil {
		return nil, f.ChildrenErr
	}
	kids := make([]store.Folder, len(f.Kids))
	for i, kid := range f.Kids {
		kids[i] = kid
	}
	return kids, nil
}

func (f *Folder) Items(_ context.Context, q store.ItemQuery) (store.Cursor, error) {
	f.OpenCount++
	f.LastQuery = q
	if f.ItemsErr != nil {
		return nil, f.ItemsErr
	}
	return &cursor{items: f.Msgs}, nil
}

type cursor struct {
	items []*Item
	pos   int
}

func (c *cursor) Next() (store.Item, error) {
	if c.pos >= len(c.items) {
		return nil, io.EOF
	}
	item := c.items[c.pos]
	c.pos++
	return item, nil
}

func (c *cursor) Close() error { return nil }

// Item implements store.Item with plain scripted fields.
type Item struct {
	ItemKind     store.ItemKind
	EntryID      string
	ConvID       string
	Subj         string
	Sender       string
	Addr         string
	ResolvedAddr string
	ToLine       string
	CCLine       string
	BCCLine      string
	ReceivedAt   time.Time
	HasDate      bool
	IsUnread     bool
	ByteSize     int64
	Cats         string
	Importancy   string
	Body         string
	Atts         []*Attachment
	AttsErr      error

	EnumCount int
}

func (it *Item) Kind() store.ItemKind   { return it.ItemKind }
func (it *Item) ID() string             { return it.EntryID }
func (it *Item) ConversationID() string { return it.ConvID }

func (it *Item) Received() (time.Time, bool) { return it.ReceivedAt, it.HasDate }

func (it *Item) Subject() string       { return it.Subj }
func (it *Item) SenderName() string    { return it.Sender }
func (it *Item) SenderAddress() string { return it.Addr }

func (it *Item) ResolvedSenderAddress() string {
	if it.ResolvedAddr != "" {
		return it.ResolvedAddr
	}
	return it.Addr
}

func (it *Item) Recipients() (string, string, string) { return it.ToLine, it.CCLine, it.BCCLine }
func (it *Item) Unread() bool                         { return it.IsUnread }
func (it *Item) Size() int64                          { return it.ByteSize }
func (it *Item) Categories() string                   { return it.Cats }
func (it *Item) Importance() string                   { return it.Importancy }
func (it *Item) AttachmentCount() int                 { return len(it.Atts) }

func (it *Item) Attachments() ([]store.Attachment, error) {
	it.EnumCount++
	if it.AttsErr != nil {
		return nil, it.AttsErr
	}
	atts := make([]store.Attachment, len(it.Atts))
	for i, a := range it.Atts {
		atts[i] = a
	}
	return atts, nil
}

func (it *Item) BodyPreview(limit int) string {
	body := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(it.Body, "\r\n", " "), "\n", " "))
	if limit > 0 && utf8.RuneCountInString(body) > limit {
		body = string([]rune(body)[:limit])
	}
	return body
}

// Attachment implements store.Attachment. SaveTo writes Content to disk
// and records the path; SaveErr forces a write failure instead.
type Attachment struct {
	Name     string
	IsInline bool
	Content  []byte
	SaveErr  error

	SavedTo []string
}

func (a *Attachment) Filename() string { return a.Name }
func (a *Attachment) Inline() bool     { return a.IsInline }

func (a *Attachment) SaveTo(path string) error {
	if a.SaveErr != nil {
		return a.SaveErr
	}
	if err := os.WriteFile(path, a.Content, 0o644); err != nil {
		return err
	}
	a.SavedTo = append(a.SavedTo, path)
	return nil
}

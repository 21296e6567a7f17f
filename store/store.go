// Package store defines the mail-store collaborator contract consumed by
// the extraction engine. Sessions, folders, items and attachments are
// non-owning handles into an external store; implementations must not be
// cached across extraction runs.
package store

import (
	"context"
	"time"

	"github.com/griffgriff5000/Spotlight-on-Outlook/restrict"
)

// Store opens sessions against a concrete mail backend.
type Store interface {
	// Connect establishes a session. With requireRunning set the backend
	// must fail instead of spinning up or retrying a connection of its
	// own; the returned error is a *ConnectionError either way.
	Connect(ctx context.Context, requireRunning bool) (Session, error)
}

// Session is one live connection to a mail store.
type Session interface {
	// StoreNames lists the top-level mailbox containers.
	StoreNames(ctx context.Context) ([]string, error)

	// ResolveFolder resolves a slash-separated folder path inside the
	// named store. An empty path resolves to the store root. A missing
	// store or folder yields a *ResolutionError.
	ResolveFolder(ctx context.Context, storeName, folderPath string) (Folder, error)

	Close() error
}

// ItemQuery shapes the cursor a folder hands back: sort order, the
// compiled server-side restriction (nil = unfiltered) and the minimal
// column set the caller will read.
type ItemQuery struct {
	NewestFirst bool
	Restriction *restrict.Restriction
	Columns     []string
}

// Folder is one named container of messages.
type Folder interface {
	Name() string

	// Children returns the direct child folders. The slice is a snapshot;
	// callers iterate it exactly once per level.
	Children(ctx context.Context) ([]Folder, error)

	// Items opens a cursor over the folder's messages.
	Items(ctx context.Context, q ItemQuery) (Cursor, error)
}

// Cursor iterates items one at a time. Next returns io.EOF after the last
// item.
type Cursor interface {
	Next() (Item, error)
	Close() error
}

// ItemKind discriminates messages from other store entries (calendar,
// contacts) that the scan skips.
type ItemKind int

const (
	KindMessage ItemKind = iota
	KindOther
)

// Item exposes one store entry's properties. Accessors absorb individual
// property read failures and return neutral zero values instead of
// erroring; a broken property never aborts the message.
type Item interface {
	Kind() ItemKind
	ID() string
	ConversationID() string

	// Received reports the received instant; ok is false when the store
	// has none.
	Received() (t time.Time, ok bool)

	Subject() string
	SenderName() string

	// SenderAddress is the raw address as stored; ResolvedSenderAddress
	// additionally resolves provider-internal addresses to a routable
	// form when the backend can.
	SenderAddress() string
	ResolvedSenderAddress() string

	Recipients() (to, cc, bcc string)
	Unread() bool
	Size() int64
	Categories() string
	Importance() string

	// AttachmentCount is the raw count, cheap to read; Attachments
	// enumerates handles in store order and may be expensive.
	AttachmentCount() int
	Attachments() ([]Attachment, error)

	// BodyPreview returns up to limit characters of the body with
	// newlines flattened, empty when the body is unavailable.
	BodyPreview(limit int) string
}

// Attachment is a non-owning handle on one attachment.
type Attachment interface {
	Filename() string

	// Inline reports whether the attachment is embedded in body rendering
	// (signature images and the like) rather than user-attached.
	Inline() bool

	// SaveTo materializes the attachment's bytes at path.
	SaveTo(path string) error
}

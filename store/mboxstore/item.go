package mboxstore

import (
	"os"
	"time"

	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store/rfc822"
)

type item struct {
	msg  *rfc822.Message
	size int64
}

// parseItem builds an item from one raw mbox message. Returns nil when
// the message is not parseable at all.
func parseItem(raw []byte) *item {
	msg, err := rfc822.Parse(raw)
	if err != nil {
		return nil
	}
	return &item{msg: msg, size: int64(len(raw))}
}

func (it *item) received() time.Time { return it.msg.Date }
func (it *item) hasReceived() bool   { return it.msg.HasDate }
func (it *item) unread() bool        { return !it.msg.Seen }

func (it *item) Kind() store.ItemKind   { return store.KindMessage }
func (it *item) ID() string             { return it.msg.ID }
func (it *item) ConversationID() string { return it.msg.ConversationID }

func (it *item) Received() (time.Time, bool) { return it.msg.Date, it.msg.HasDate }

func (it *item) Subject() string    { return it.msg.Subject }
func (it *item) SenderName() string { return it.msg.SenderName }

func (it *item) SenderAddress() string { return it.msg.SenderAddress }

// ResolvedSenderAddress is the raw address: mbox messages already carry
// routable SMTP addresses.
func (it *item) ResolvedSenderAddress() string { return it.msg.SenderAddress }

func (it *item) Recipients() (string, string, string) {
	return it.msg.To, it.msg.Cc, it.msg.Bcc
}

func (it *item) Unread() bool         { return !it.msg.Seen }
func (it *item) Size() int64          { return it.size }
func (it *item) Categories() string   { return it.msg.Categories }
func (it *item) Importance() string   { return it.msg.Importance }
func (it *item) AttachmentCount() int { return len(it.msg.Attachments) }

func (it *item) Attachments() ([]store.Attachment, error) {
	atts := make([]store.Attachment, len(it.msg.Attachments))
	for i := range it.msg.Attachments {
		atts[i] = &attachment{part: &it.msg.Attachments[i]}
	}
	return atts, nil
}

func (it *item) BodyPreview(limit int) string { return it.msg.Preview(limit) }

// attachment holds the decoded part bytes; go-message already reversed
// the transfer encoding during the parse walk.
type attachment struct {
	part *rfc822.Attachment
}

func (a *attachment) Filename() string { return a.part.Name }
func (a *attachment) Inline() bool     { return a.part.Inline }

func (a *attachment) SaveTo(path string) error {
	return os.WriteFile(path, a.part.Data, 0o644)
}

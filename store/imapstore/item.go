package imapstore

import (
	"os"
	"strconv"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store/rfc822"
)

type item struct {
	uid  imapv2.UID
	msg  *rfc822.Message
	size int64
	seen bool
}

func itemFromBuffer(buf *imapclient.FetchMessageBuffer, section *imapv2.FetchItemBodySection) *item {
	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil
	}
	msg, err := rfc822.Parse(raw)
	if err != nil {
		return nil
	}
	it := &item{uid: buf.UID, msg: msg, size: buf.RFC822Size}
	if it.size == 0 {
		it.size = int64(len(raw))
	}
	for _, flag := range buf.Flags {
		if flag == imapv2.FlagSeen {
			it.seen = true
		}
	}
	return it
}

func (it *item) Kind() store.ItemKind { return store.KindMessage }

func (it *item) ID() string {
	if it.msg.ID != "" {
		return it.msg.ID
	}
	return strconv.FormatUint(uint64(it.uid), 10)
}

func (it *item) ConversationID() string { return it.msg.ConversationID }

func (it *item) Received() (time.Time, bool) { return it.msg.Date, it.msg.HasDate }

func (it *item) Subject() string    { return it.msg.Subject }
func (it *item) SenderName() string { return it.msg.SenderName }

func (it *item) SenderAddress() string { return it.msg.SenderAddress }

// ResolvedSenderAddress is the raw address: IMAP envelopes already carry
// routable SMTP addresses.
func (it *item) ResolvedSenderAddress() string { return it.msg.SenderAddress }

func (it *item) Recipients() (string, string, string) {
	return it.msg.To, it.msg.Cc, it.msg.Bcc
}

// Unread comes from the \Seen flag, which is authoritative over anything
// in the message headers.
func (it *item) Unread() bool { return !it.seen }

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

type attachment struct {
	part *rfc822.Attachment
}

func (a *attachment) Filename() string { return a.part.Name }
func (a *attachment) Inline() bool     { return a.part.Inline }

func (a *attachment) SaveTo(path string) error {
	return os.WriteFile(path, a.part.Data, 0o644)
}

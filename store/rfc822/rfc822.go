// Package rfc822 parses raw mail messages into the fields the store
// backends expose. Both the mbox and imap backends hand it complete
// messages, headers included.
package rfc822

import (
	"bytes"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// Attachment is one non-body part with its decoded content.
type Attachment struct {
	Name   string
	Inline bool
	Data   []byte
}

// Message holds the parsed header fields, the plain-text body and the
// attachment parts of one message.
type Message struct {
	ID             string
	ConversationID string
	Subject        string
	SenderName     string
	SenderAddress  string
	To, Cc, Bcc    string
	Date           time.Time
	HasDate        bool
	Seen           bool
	Categories     string
	Importance     string
	TextBody       string
	Attachments    []Attachment
}

// Preview returns up to limit characters of the plain-text body with
// newlines flattened to spaces.
func (m *Message) Preview(limit int) string {
	body := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(m.TextBody, "\r\n", " "), "\n", " "))
	if limit > 0 && utf8.RuneCountInString(body) > limit {
		body = string([]rune(body)[:limit])
	}
	return body
}

// Parse reads one raw message. The MIME tree is walked once up front so
// attachment content, the plain-text body and the part counts all come
// out of the same pass.
func Parse(raw []byte) (*Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	header := mr.Header
	msg := &Message{}

	msg.ID = strings.Trim(strings.TrimSpace(header.Get("Message-Id")), "<>")
	msg.Subject, _ = header.Subject()
	if date, err := header.Date(); err == nil && !date.IsZero() {
		msg.Date = date
		msg.HasDate = true
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.SenderName = from[0].Name
		msg.SenderAddress = from[0].Address
	}
	msg.To = addressLine(header, "To")
	msg.Cc = addressLine(header, "Cc")
	msg.Bcc = addressLine(header, "Bcc")

	// References ties replies to their thread; thread starters fall back
	// to their own id.
	if refs := strings.Fields(header.Get("References")); len(refs) > 0 {
		msg.ConversationID = strings.Trim(refs[0], "<>")
	} else {
		msg.ConversationID = msg.ID
	}

	// mbox convention: "R" in the Status header means the MUA marked the
	// message read.
	msg.Seen = strings.Contains(header.Get("Status"), "R")

	msg.Categories = header.Get("X-Keywords")
	msg.Importance = header.Get("Importance")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				if msg.TextBody == "" {
					body, readErr := io.ReadAll(part.Body)
					if readErr == nil {
						msg.TextBody = string(body)
					}
				}
			case strings.HasPrefix(contentType, "text/"):
				// html alternative, not a body source
			default:
				// Inline non-text parts (signature images, embedded
				// content) count as inline attachments.
				name := params["name"]
				if name == "" {
					name = strings.Trim(h.Get("Content-Id"), "<>")
				}
				data, readErr := io.ReadAll(part.Body)
				if readErr != nil {
					continue
				}
				msg.Attachments = append(msg.Attachments, Attachment{
					Name:   name,
					Inline: true,
					Data:   data,
				})
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Name: name,
				Data: data,
			})
		}
	}

	return msg, nil
}

func addressLine(header mail.Header, field string) string {
	list, err := header.AddressList(field)
	if err != nil || len(list) == 0 {
		return ""
	}
	parts := make([]string, 0, len(list))
	for _, addr := range list {
		if addr.Name != "" {
			parts = append(parts, addr.Name)
		} else {
			parts = append(parts, addr.Address)
		}
	}
	return strings.Join(parts, "; ")
}

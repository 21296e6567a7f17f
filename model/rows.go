package model

import "time"

// MessageView is a transient read-only projection of one store item,
// built per message during traversal and discarded after row
// construction.
type MessageView struct {
	ID              string
	ConversationID  string
	Received        time.Time
	HasReceived     bool
	Subject         string
	SenderName      string
	SenderAddress   string
	To              string
	CC              string
	BCC             string
	Unread          bool
	Size            int64
	Categories      string
	Importance      string
	AttachmentCount int
}

// ReceivedTimeFormat is the wire format used for received timestamps in
// both row types.
const ReceivedTimeFormat = "2006-01-02 15:04:05"

// ReceivedString formats the received instant, empty when unavailable.
func (v MessageView) ReceivedString() string {
	if !v.HasReceived {
		return ""
	}
	return v.Received.Format(ReceivedTimeFormat)
}

// ResultRow is one matched email in the aggregated output. Rows are
// append-only and keep discovery order.
type ResultRow struct {
	EntryID         string
	ConversationID  string
	FolderPath      string
	Subject         string
	SenderName      string
	SenderEmail     string
	To              string
	CC              string
	BCC             string
	ReceivedTime    string
	Categories      string
	Importance      string
	Size            int64
	Unread          bool
	AttachmentCount int
	HasAttachments  bool

	BodyPreview          string
	AttachmentNames      string
	SavedAttachmentCount int
	AttachmentsFolder    string
	OpenAttachments      string
}

// AttachmentRow is one saved attachment in the aggregated output.
type AttachmentRow struct {
	ReceivedTime   string
	Subject        string
	SenderEmail    string
	AttachmentName string
	AttachmentPath string
	Link           string
}

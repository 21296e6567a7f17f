package mboxstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/restrict"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

const inboxMbox = `From alice@example.com Mon Jan 15 09:30:00 2024
From: Alice Example <alice@example.com>
To: Bob <bob@example.com>
Subject: Quarterly numbers
Date: Mon, 15 Jan 2024 09:30:00 +0000
Message-Id: <plain-1@example.com>
Status: RO
MIME-Version: 1.0
Content-Type: text/plain

The numbers look fine.

From carol@example.com Tue Feb 20 14:00:00 2024
From: Carol <carol@example.com>
To: Bob <bob@example.com>
Cc: Dave <dave@example.com>
Subject: Contract scan
Date: Tue, 20 Feb 2024 14:00:00 +0000
Message-Id: <att-1@example.com>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain

Signed copy attached.
--b1
Content-Type: application/pdf; name="contract.pdf"
Content-Disposition: attachment; filename="contract.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--b1--
`

const subMbox = `From erin@example.com Wed Mar 05 08:00:00 2025
From: Erin <erin@example.com>
To: Bob <bob@example.com>
Subject: Archived note
Date: Wed, 05 Mar 2025 08:00:00 +0000
Message-Id: <sub-1@example.com>
Status: RO
MIME-Version: 1.0
Content-Type: text/plain

Old note.
`

func writeTestStore(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Mail")
	if err := os.MkdirAll(filepath.Join(root, "Inbox"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "Drafts"), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Inbox.mbox"), []byte(inboxMbox), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Inbox", "Sub.mbox"), []byte(subMbox), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return root
}

func openFolder(t *testing.T, root, path string) store.Folder {
	t.Helper()
	s := &Store{Root: root}
	sess, err := s.Connect(context.Background(), false)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	f, err := sess.ResolveFolder(context.Background(), "", path)
	if err != nil {
		t.Fatalf("ResolveFolder(%q) error = %v", path, err)
	}
	return f
}

func drain(t *testing.T, f store.Folder, q store.ItemQuery) []store.Item {
	t.Helper()
	cur, err := f.Items(context.Background(), q)
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	defer cur.Close()
	var out []store.Item
	for {
		it, err := cur.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, it)
	}
	return out
}

func TestConnectMissingRoot(t *testing.T) {
	s := &Store{Root: filepath.Join(t.TempDir(), "nope")}
	_, err := s.Connect(context.Background(), false)
	if err == nil {
		t.Fatal("Connect() expected error for missing root")
	}
	if !store.IsConnectionError(err) {
		t.Errorf("Connect() error = %v, want connection error", err)
	}
}

func TestResolveFolder(t *testing.T) {
	root := writeTestStore(t)
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "Inbox", want: "Inbox"},
		{path: "Inbox/Sub", want: "Sub"},
		{path: "/Inbox/", want: "Inbox"},
		{path: "Missing", wantErr: true},
		{path: "Inbox/Missing", wantErr: true},
	}
	s := &Store{Root: root}
	sess, err := s.Connect(context.Background(), false)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer sess.Close()

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := sess.ResolveFolder(context.Background(), "", tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveFolder(%q) expected error", tt.path)
				}
				if !store.IsResolutionError(err) {
					t.Errorf("ResolveFolder(%q) error = %v, want resolution error", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveFolder(%q) error = %v", tt.path, err)
			}
			if f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}

func TestChildren(t *testing.T) {
	root := writeTestStore(t)
	f := openFolder(t, root, "")
	kids, err := f.Children(context.Background())
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	var names []string
	for _, k := range kids {
		names = append(names, k.Name())
	}
	want := []string{"Drafts", "Inbox"}
	if len(names) != len(want) {
		t.Fatalf("Children() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Children()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestItemsParsesMessages(t *testing.T) {
	root := writeTestStore(t)
	f := openFolder(t, root, "Inbox")
	items := drain(t, f, store.ItemQuery{NewestFirst: true})
	if len(items) != 2 {
		t.Fatalf("Items() returned %d items, want 2", len(items))
	}

	first := items[0]
	if first.Subject() != "Contract scan" {
		t.Errorf("newest Subject() = %q, want %q", first.Subject(), "Contract scan")
	}
	if first.SenderName() != "Carol" || first.SenderAddress() != "carol@example.com" {
		t.Errorf("sender = %q <%q>", first.SenderName(), first.SenderAddress())
	}
	to, cc, _ := first.Recipients()
	if to != "Bob" || cc != "Dave" {
		t.Errorf("Recipients() = %q, %q", to, cc)
	}
	if !first.Unread() {
		t.Error("message without Status header should be unread")
	}
	if first.AttachmentCount() != 1 {
		t.Errorf("AttachmentCount() = %d, want 1", first.AttachmentCount())
	}
	received, ok := first.Received()
	if !ok {
		t.Fatal("Received() reported no date")
	}
	if got := received.UTC().Format(time.DateOnly); got != "2024-02-20" {
		t.Errorf("Received() = %s, want 2024-02-20", got)
	}

	second := items[1]
	if second.Subject() != "Quarterly numbers" {
		t.Errorf("Subject() = %q, want %q", second.Subject(), "Quarterly numbers")
	}
	if second.Unread() {
		t.Error("Status: RO message should not be unread")
	}
	if got := second.BodyPreview(200); got != "The numbers look fine." {
		t.Errorf("BodyPreview() = %q", got)
	}
}

func TestItemsRestriction(t *testing.T) {
	root := writeTestStore(t)
	tests := []struct {
		name        string
		restriction *restrict.Restriction
		want        []string
	}{
		{
			name:        "has attachments",
			restriction: &restrict.Restriction{HasAttachments: model.TriYes},
			want:        []string{"Contract scan"},
		},
		{
			name:        "no attachments",
			restriction: &restrict.Restriction{HasAttachments: model.TriNo},
			want:        []string{"Quarterly numbers"},
		},
		{
			name:        "read only",
			restriction: &restrict.Restriction{Unread: model.TriNo},
			want:        []string{"Quarterly numbers"},
		},
		{
			name: "since february",
			restriction: &restrict.Restriction{
				Start: timePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
			},
			want: []string{"Contract scan"},
		},
		{
			name: "until january",
			restriction: &restrict.Restriction{
				End: timePtr(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)),
			},
			want: []string{"Quarterly numbers"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := openFolder(t, root, "Inbox")
			items := drain(t, f, store.ItemQuery{NewestFirst: true, Restriction: tt.restriction})
			if len(items) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(items), len(tt.want))
			}
			for i, subject := range tt.want {
				if items[i].Subject() != subject {
					t.Errorf("item %d Subject() = %q, want %q", i, items[i].Subject(), subject)
				}
			}
		})
	}
}

func TestAttachmentSave(t *testing.T) {
	root := writeTestStore(t)
	f := openFolder(t, root, "Inbox")
	items := drain(t, f, store.ItemQuery{
		NewestFirst: true,
		Restriction: &restrict.Restriction{HasAttachments: model.TriYes},
	})
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	atts, err := items[0].Attachments()
	if err != nil {
		t.Fatalf("Attachments() error = %v", err)
	}
	if len(atts) != 1 {
		t.Fatalf("got %d attachments, want 1", len(atts))
	}
	if atts[0].Filename() != "contract.pdf" {
		t.Errorf("Filename() = %q, want contract.pdf", atts[0].Filename())
	}
	if atts[0].Inline() {
		t.Error("Inline() = true for a disposition attachment")
	}

	dest := filepath.Join(t.TempDir(), "contract.pdf")
	if err := atts[0].SaveTo(dest); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "%PDF-1.4\n" {
		t.Errorf("saved content = %q", data)
	}
}

func timePtr(v time.Time) *time.Time { return &v }

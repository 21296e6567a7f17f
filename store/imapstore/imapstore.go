// Package imapstore exposes an IMAP account as a mail store. One account
// maps to one store; the mailbox hierarchy reported by LIST maps to the
// folder tree, with the server's delimiter translated to slash-separated
// paths.
package imapstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/restrict"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
}

// Store opens sessions against one IMAP account.
type Store struct {
	Opts   Options
	Logger *slog.Logger
}

// Connect dials and authenticates. A single attempt either way; the
// requireRunning flag adds nothing for a remote server, there is no local
// instance to spin up.
func (s *Store) Connect(_ context.Context, _ bool) (store.Session, error) {
	if s.Opts.Host == "" {
		return nil, &store.ConnectionError{Backend: "imap", Err: fmt.Errorf("imap host is empty")}
	}
	if s.Opts.Port <= 0 {
		return nil, &store.ConnectionError{Backend: "imap", Err: fmt.Errorf("imap port must be positive")}
	}

	address := net.JoinHostPort(s.Opts.Host, strconv.Itoa(s.Opts.Port))
	options := &imapclient.Options{}
	if s.Opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         s.Opts.Host,
			InsecureSkipVerify: s.Opts.InsecureSkipVerify,
		}
	}

	var (
		client *imapclient.Client
		err    error
	)
	if s.Opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, &store.ConnectionError{Backend: "imap", Err: fmt.Errorf("dial imap %s: %w", address, err)}
	}

	if err := client.Login(s.Opts.Username, s.Opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &store.ConnectionError{Backend: "imap", Err: fmt.Errorf("imap login failed: %w", err)}
	}

	if s.Logger != nil {
		s.Logger.Debug("imap connection established", "address", address, "user", s.Opts.Username, "tls", s.Opts.UseTLS)
	}

	return &session{
		client:   client,
		account:  s.Opts.Username,
		logger:   s.Logger,
		fallback: address,
	}, nil
}

type session struct {
	client   *imapclient.Client
	account  string
	logger   *slog.Logger
	fallback string

	boxes []*imapv2.ListData
}

func (s *session) name() string {
	if s.account != "" {
		return s.account
	}
	return s.fallback
}

func (s *session) StoreNames(_ context.Context) ([]string, error) {
	return []string{s.name()}, nil
}

// mailboxes lists the full hierarchy once and caches the snapshot for the
// session's lifetime.
func (s *session) mailboxes() ([]*imapv2.ListData, error) {
	if s.boxes != nil {
		return s.boxes, nil
	}
	boxes, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("list mailboxes: %w", err)
	}
	s.boxes = boxes
	return boxes, nil
}

func (s *session) ResolveFolder(_ context.Context, storeName, folderPath string) (store.Folder, error) {
	if storeName != "" && !strings.EqualFold(storeName, s.name()) {
		return nil, &store.ResolutionError{Kind: "store", Name: storeName}
	}

	path := strings.Trim(folderPath, "/")
	if path == "" {
		return &folder{sess: s, folderName: s.name()}, nil
	}

	boxes, err := s.mailboxes()
	if err != nil {
		return nil, err
	}
	for _, box := range boxes {
		if strings.EqualFold(slashPath(box), path) {
			return folderFor(s, box), nil
		}
	}
	return nil, &store.ResolutionError{Kind: "folder", Name: folderPath}
}

func (s *session) Close() error {
	if err := s.client.Logout().Wait(); err != nil && s.logger != nil {
		s.logger.Warn("imap logout failed", "err", err)
	}
	return s.client.Close()
}

// slashPath normalizes a mailbox name to the slash-separated form callers
// use.
func slashPath(box *imapv2.ListData) string {
	if box.Delim == 0 || box.Delim == '/' {
		return box.Mailbox
	}
	return strings.ReplaceAll(box.Mailbox, string(box.Delim), "/")
}

func folderFor(s *session, box *imapv2.ListData) *folder {
	name := slashPath(box)
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return &folder{
		sess:       s,
		folderName: name,
		mailbox:    box.Mailbox,
		delim:      box.Delim,
		noselect:   hasAttr(box, imapv2.MailboxAttrNoSelect),
	}
}

func hasAttr(box *imapv2.ListData, attr imapv2.MailboxAttr) bool {
	for _, a := range box.Attrs {
		if a == attr {
			return true
		}
	}
	return false
}

// folder is one mailbox. mailbox is empty for the synthetic account root,
// which carries no messages of its own.
type folder struct {
	sess       *session
	folderName string
	mailbox    string
	delim      rune
	noselect   bool
}

func (f *folder) Name() string { return f.folderName }

func (f *folder) Children(_ context.Context) ([]store.Folder, error) {
	boxes, err := f.sess.mailboxes()
	if err != nil {
		return nil, err
	}

	prefix := ""
	if f.mailbox != "" {
		delim := f.delim
		if delim == 0 {
			// A delimiter-less hierarchy has no children below this box.
			return nil, nil
		}
		prefix = f.mailbox + string(delim)
	}

	var kids []store.Folder
	for _, box := range boxes {
		if !strings.HasPrefix(box.Mailbox, prefix) {
			continue
		}
		rest := box.Mailbox[len(prefix):]
		if rest == "" {
			continue
		}
		if box.Delim != 0 && strings.ContainsRune(rest, box.Delim) {
			continue
		}
		kids = append(kids, folderFor(f.sess, box))
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].Name() < kids[j].Name() })
	return kids, nil
}

func (f *folder) Items(ctx context.Context, q store.ItemQuery) (store.Cursor, error) {
	if f.mailbox == "" || f.noselect {
		return &cursor{}, nil
	}

	if _, err := f.sess.client.Select(f.mailbox, &imapv2.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("select %s: %w", f.mailbox, err)
	}

	searchData, err := f.sess.client.UIDSearch(searchCriteria(q.Restriction), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", f.mailbox, err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return &cursor{}, nil
	}

	section := &imapv2.FetchItemBodySection{Peek: true}
	fetchCmd := f.sess.client.Fetch(imapv2.UIDSetNum(uids...), &imapv2.FetchOptions{
		UID:         true,
		Flags:       true,
		RFC822Size:  true,
		BodySection: []*imapv2.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	var items []*item
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			if f.sess.logger != nil {
				f.sess.logger.Warn("message fetch failed", "mailbox", f.mailbox, "err", err)
			}
			continue
		}
		it := itemFromBuffer(buf, section)
		if it == nil {
			if f.sess.logger != nil {
				f.sess.logger.Warn("unparsable message skipped", "mailbox", f.mailbox, "uid", buf.UID)
			}
			continue
		}
		// SINCE and BEFORE are date-granular on the server; the exact
		// bounds and the attachment gate are re-applied here.
		if !matchesRestriction(it, q.Restriction) {
			continue
		}
		items = append(items, it)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.mailbox, err)
	}

	if q.NewestFirst {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].msg.Date.After(items[j].msg.Date)
		})
	}
	return &cursor{items: items}, nil
}

func searchCriteria(r *restrict.Restriction) *imapv2.SearchCriteria {
	criteria := &imapv2.SearchCriteria{}
	if r == nil {
		return criteria
	}
	if r.Start != nil {
		criteria.Since = *r.Start
	}
	if r.End != nil {
		criteria.Before = r.End.AddDate(0, 0, 1)
	}
	switch r.Unread {
	case model.TriYes:
		criteria.NotFlag = []imapv2.Flag{imapv2.FlagSeen}
	case model.TriNo:
		criteria.Flag = []imapv2.Flag{imapv2.FlagSeen}
	}
	return criteria
}

func matchesRestriction(it *item, r *restrict.Restriction) bool {
	if r == nil {
		return true
	}
	if r.Start != nil && (!it.msg.HasDate || it.msg.Date.Before(*r.Start)) {
		return false
	}
	if r.End != nil && (!it.msg.HasDate || it.msg.Date.After(*r.End)) {
		return false
	}
	switch r.HasAttachments {
	case model.TriYes:
		if len(it.msg.Attachments) == 0 {
			return false
		}
	case model.TriNo:
		if len(it.msg.Attachments) > 0 {
			return false
		}
	}
	switch r.Unread {
	case model.TriYes:
		if it.seen {
			return false
		}
	case model.TriNo:
		if !it.seen {
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

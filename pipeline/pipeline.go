// Package pipeline evaluates the client-side predicates for one message,
// ordered cheapest-first and short-circuiting on the first rejection. The
// server-side restriction only narrows what gets fetched; this chain is
// what decides.
package pipeline

import (
	"strings"

	"github.com/griffgriff5000/Spotlight-on-Outlook/classify"
	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
)

// Reject identifies which stage dropped the message, for debug logging
// and stats.
type Reject string

const (
	RejectNone        Reject = ""
	RejectKind        Reject = "kind"
	RejectAttachments Reject = "attachment_presence"
	RejectSubject     Reject = "subject"
	RejectSender      Reject = "sender"
	RejectType        Reject = "attachment_type"
)

// Decision is the pipeline outcome for one item. When Enumerated is true,
// Attachments holds the classifier output so downstream consumers never
// enumerate the store handles a second time.
type Decision struct {
	Matched     bool
	Reject      Reject
	Enumerated  bool
	Attachments []classify.Info
}

// Evaluator runs the fixed-order predicate chain for one configuration.
type Evaluator struct {
	opts model.FilterOptions

	subjectNeedle string
	senderNeedle  string
}

// New prepares an evaluator; substring needles are lowercased once.
func New(opts model.FilterOptions) *Evaluator {
	return &Evaluator{
		opts:          opts,
		subjectNeedle: strings.ToLower(opts.SubjectContains),
		senderNeedle:  strings.ToLower(opts.FromContains),
	}
}

// Evaluate runs the chain: kind check, attachment-presence gate, subject
// substring, sender substring, then attachment enumeration when anything
// downstream needs it. Type-gating on email selection rejects a message
// whose attachments all miss the allow-list even though it "has
// attachments"; likewise inline exclusion rejects when it empties the
// effective attachment set under a has-attachments requirement.
func (e *Evaluator) Evaluate(item store.Item) Decision {
	if item.Kind() != store.KindMessage {
		return Decision{Reject: RejectKind}
	}

	rawCount := item.AttachmentCount()
	switch e.opts.HasAttachments {
	case model.TriYes:
		if rawCount == 0 {
			return Decision{Reject: RejectAttachments}
		}
	case model.TriNo:
		if rawCount > 0 {
			return Decision{Reject: RejectAttachments}
		}
	}

	if e.subjectNeedle != "" && !strings.Contains(strings.ToLower(item.Subject()), e.subjectNeedle) {
		return Decision{Reject: RejectSubject}
	}

	if e.senderNeedle != "" {
		name := strings.ToLower(item.SenderName())
		addr := strings.ToLower(item.SenderAddress())
		if !strings.Contains(name, e.senderNeedle) && !strings.Contains(addr, e.senderNeedle) {
			return Decision{Reject: RejectSender}
		}
	}

	if !e.needEnumeration(rawCount) {
		return Decision{Matched: true}
	}

	infos := classify.Enumerate(item, e.opts.AllowedExts, e.opts.ExcludeInline)
	decision := Decision{Enumerated: true, Attachments: infos}

	if e.opts.ApplyTypeToSelection && len(e.opts.AllowedExts) > 0 && !classify.AnyMatch(infos) {
		decision.Reject = RejectType
		return decision
	}
	if e.opts.HasAttachments == model.TriYes && e.opts.ExcludeInline && len(infos) == 0 {
		decision.Reject = RejectAttachments
		return decision
	}

	decision.Matched = true
	return decision
}

// needEnumeration reports whether any downstream concern requires walking
// the attachment list. Enumeration is the expensive stage, so it only
// runs when type-gating applies, attachment names are wanted, inline
// exclusion is on, or attachments are about to be saved.
func (e *Evaluator) needEnumeration(rawCount int) bool {
	if rawCount == 0 {
		return false
	}
	if e.opts.ApplyTypeToSelection && len(e.opts.AllowedExts) > 0 {
		return true
	}
	if e.opts.WantAttachmentNames {
		return true
	}
	if e.opts.ExcludeInline {
		return true
	}
	return e.opts.SaveAttachments
}

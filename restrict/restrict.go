// Package restrict compiles a filter configuration into the server-side
// pre-filter handed to the mail store. The restriction narrows what the
// store fetches; it is never trusted for correctness. Every constraint it
// expresses is re-checked by the client-side pipeline, since store filter
// semantics can be inexact (attachment presence for inline-only messages,
// for example).
package restrict

import (
	"strings"
	"time"

	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
)

// Restriction is the compiled pre-filter. Backends translate the
// structured fields into their own query form; String renders the
// canonical clause syntax for backends that take the predicate verbatim.
type Restriction struct {
	Start          *time.Time
	End            *time.Time
	HasAttachments model.Tri
	Unread         model.Tri
}

// clauseTimeFormat is the US-style timestamp the store's query filter
// expects inside clauses.
const clauseTimeFormat = "01/02/2006 03:04 PM"

// Compile builds the restriction from the run options. It returns nil
// when no date, attachment or unread constraint is set, meaning the store
// should fetch unfiltered.
func Compile(o model.FilterOptions) *Restriction {
	if o.Start == nil && o.End == nil && o.HasAttachments == model.TriAny && o.Unread == model.TriAny {
		return nil
	}
	return &Restriction{
		Start:          o.Start,
		End:            o.End,
		HasAttachments: o.HasAttachments,
		Unread:         o.Unread,
	}
}

// String renders the clauses joined with AND, in fixed order: received
// lower bound, received upper bound, attachment presence, unread.
func (r *Restriction) String() string {
	if r == nil {
		return ""
	}
	var clauses []string
	if r.Start != nil {
		clauses = append(clauses, "[ReceivedTime] >= '"+r.Start.Format(clauseTimeFormat)+"'")
	}
	if r.End != nil {
		clauses = append(clauses, "[ReceivedTime] <= '"+r.End.Format(clauseTimeFormat)+"'")
	}
	switch r.HasAttachments {
	case model.TriYes:
		clauses = append(clauses, "[HasAttachment] = True")
	case model.TriNo:
		clauses = append(clauses, "[HasAttachment] = False")
	}
	switch r.Unread {
	case model.TriYes:
		clauses = append(clauses, "[Unread] = True")
	case model.TriNo:
		clauses = append(clauses, "[Unread] = False")
	}
	return strings.Join(clauses, " AND ")
}

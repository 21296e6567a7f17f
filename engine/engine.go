// Package engine orchestrates one extraction run: it drives the folder
// traversal, opens a server-filtered cursor per folder, funnels every item
// through the filter pipeline and aggregates the surviving rows under the
// global item cap.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/griffgriff5000/Spotlight-on-Outlook/classify"
	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
	"github.com/griffgriff5000/Spotlight-on-Outlook/names"
	"github.com/griffgriff5000/Spotlight-on-Outlook/persist"
	"github.com/griffgriff5000/Spotlight-on-Outlook/pipeline"
	"github.com/griffgriff5000/Spotlight-on-Outlook/restrict"
	"github.com/griffgriff5000/Spotlight-on-Outlook/stats"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
	"github.com/griffgriff5000/Spotlight-on-Outlook/traverse"
)

const bodyPreviewLimit = 200

// minimalColumns is the fetched-column set requested from the store; the
// row builder reads nothing outside it.
var minimalColumns = []string{
	"EntryID", "ConversationID", "Subject", "SenderName", "SenderEmailAddress",
	"To", "CC", "BCC", "ReceivedTime", "Categories", "Importance", "Size",
	"UnRead", "HasAttachment",
}

// Result aggregates one run's output. Rows keep discovery order: folder
// traversal order, then per-folder cursor order (newest first).
type Result struct {
	Rows           []model.ResultRow
	Attachments    []model.AttachmentRow
	FoldersScanned int
}

// Engine holds the collaborators of one extraction invocation. All
// mutable scan state lives inside Run; an Engine value itself can be
// discarded after the call.
type Engine struct {
	opts    model.FilterOptions
	session store.Session
	logger  *slog.Logger
	emit    func(stats.Event)
}

// New builds an engine. emit receives progress events and may be nil.
func New(opts model.FilterOptions, session store.Session, logger *slog.Logger, emit func(stats.Event)) *Engine {
	if emit == nil {
		emit = func(stats.Event) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, session: session, logger: logger, emit: emit}
}

// Run performs the scan. Only root resolution failures are returned as
// errors; a folder that cannot be read is logged and skipped, and a run
// that matches nothing returns an empty result, not an error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	root, err := e.session.ResolveFolder(ctx, e.opts.Store, e.opts.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("resolve folder %q in store %q: %w", e.opts.FolderPath, e.opts.Store, err)
	}

	restriction := restrict.Compile(e.opts)
	if restriction != nil {
		e.logger.Debug("server-side restriction", "predicate", restriction.String())
	} else {
		e.logger.Debug("no server-side restriction, fetching unfiltered")
	}

	evaluator := pipeline.New(e.opts)
	var saver *persist.Saver
	if e.opts.SaveAttachments {
		saver = &persist.Saver{BaseDir: e.opts.AttachmentsDir, Logger: e.logger}
	}

	result := &Result{}
	query := store.ItemQuery{
		NewestFirst: true,
		Restriction: restriction,
		Columns:     minimalColumns,
	}

	walkErr := traverse.Walk(ctx, root, e.opts.FolderPath, e.opts.Recurse, e.logger, func(folder store.Folder, path string) error {
		if e.capReached(result) {
			return traverse.SkipAll
		}
		if err := e.scanFolder(ctx, folder, path, query, evaluator, saver, result); err != nil {
			return err
		}
		if e.capReached(result) {
			return traverse.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	e.logger.Info("scan finished",
		"folders", result.FoldersScanned,
		"emails", len(result.Rows),
		"attachments", len(result.Attachments))
	return result, nil
}

func (e *Engine) capReached(result *Result) bool {
	return e.opts.MaxItems > 0 && len(result.Rows) >= e.opts.MaxItems
}

// scanFolder iterates one folder's cursor. Read failures are recoverable:
// the folder is skipped and the walk continues.
func (e *Engine) scanFolder(ctx context.Context, folder store.Folder, path string, query store.ItemQuery, evaluator *pipeline.Evaluator, saver *persist.Saver, result *Result) error {
	cursor, err := folder.Items(ctx, query)
	if err != nil {
		e.logger.Warn("open folder items failed, skipping", "folder", path, "err", err)
		e.emit(stats.Event{Stage: stats.StageTraverse, Type: stats.EventTypeFolderSkipped, Folder: path, Err: err})
		return nil
	}
	defer cursor.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.capReached(result) {
			break
		}

		item, err := cursor.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Warn("cursor read failed, skipping rest of folder", "folder", path, "err", err)
			e.emit(stats.Event{Stage: stats.StageTraverse, Type: stats.EventTypeError, Folder: path, Err: err})
			break
		}

		e.emit(stats.Event{Stage: stats.StageFilter, Type: stats.EventTypeScanned, Folder: path, ItemID: item.ID()})

		decision := evaluator.Evaluate(item)
		if !decision.Matched {
			e.emit(stats.Event{Stage: stats.StageFilter, Type: stats.EventTypeRejected, Folder: path, ItemID: item.ID(), Detail: string(decision.Reject)})
			continue
		}

		e.collect(item, path, decision, saver, result)
	}

	result.FoldersScanned++
	e.emit(stats.Event{Stage: stats.StageTraverse, Type: stats.EventTypeFolderScanned, Folder: path})
	e.logger.Debug("folder scanned", "folder", path, "matchedSoFar", len(result.Rows))
	return nil
}

// collect turns a surviving item into rows and optionally persists its
// attachments.
func (e *Engine) collect(item store.Item, path string, decision pipeline.Decision, saver *persist.Saver, result *Result) {
	view := e.buildView(item)
	row := model.ResultRow{
		EntryID:         view.ID,
		ConversationID:  view.ConversationID,
		FolderPath:      path,
		Subject:         view.Subject,
		SenderName:      view.SenderName,
		SenderEmail:     view.SenderAddress,
		To:              view.To,
		CC:              view.CC,
		BCC:             view.BCC,
		ReceivedTime:    view.ReceivedString(),
		Categories:      view.Categories,
		Importance:      view.Importance,
		Size:            view.Size,
		Unread:          view.Unread,
		AttachmentCount: view.AttachmentCount,
		HasAttachments:  view.AttachmentCount > 0,
	}

	if e.opts.WantBodyPreview {
		row.BodyPreview = item.BodyPreview(bodyPreviewLimit)
	}

	if e.opts.WantAttachmentNames && decision.Enumerated {
		var attNames []string
		if len(e.opts.AllowedExts) > 0 {
			attNames = classify.MatchedNames(decision.Attachments)
		} else {
			for _, info := range decision.Attachments {
				attNames = append(attNames, info.Filename)
			}
		}
		row.AttachmentNames = strings.Join(attNames, ", ")
	}

	if saver != nil && decision.Enumerated && len(decision.Attachments) > 0 {
		saved := saver.Save(view, decision.Attachments, len(e.opts.AllowedExts) > 0)
		if len(saved.Paths) > 0 {
			row.SavedAttachmentCount = len(saved.Paths)
			row.AttachmentsFolder = saved.Dir
			row.OpenAttachments = fmt.Sprintf("=HYPERLINK(%q,%q)", names.FileURL(saved.Dir), "Open Folder")
			for i, savedPath := range saved.Paths {
				result.Attachments = append(result.Attachments, model.AttachmentRow{
					ReceivedTime:   view.ReceivedString(),
					Subject:        view.Subject,
					SenderEmail:    view.SenderAddress,
					AttachmentName: saved.Names[i],
					AttachmentPath: savedPath,
					Link:           fmt.Sprintf("=HYPERLINK(%q,%q)", names.FileURL(savedPath), saved.Names[i]),
				})
				e.emit(stats.Event{Stage: stats.StagePersist, Type: stats.EventTypeSaved, Folder: path, ItemID: view.ID, Detail: saved.Names[i]})
			}
			e.logger.Debug("saved attachments", "count", len(saved.Paths), "dir", saved.Dir)
		}
	}

	result.Rows = append(result.Rows, row)
	e.emit(stats.Event{Stage: stats.StageFilter, Type: stats.EventTypeMatched, Folder: path, ItemID: view.ID})
}

func (e *Engine) buildView(item store.Item) model.MessageView {
	received, hasReceived := item.Received()
	to, cc, bcc := item.Recipients()

	address := item.SenderAddress()
	if e.opts.ResolveAddresses {
		address = item.ResolvedSenderAddress()
	}

	return model.MessageView{
		ID:              item.ID(),
		ConversationID:  item.ConversationID(),
		Received:        received,
		HasReceived:     hasReceived,
		Subject:         item.Subject(),
		SenderName:      item.SenderName(),
		SenderAddress:   address,
		To:              to,
		CC:              cc,
		BCC:             bcc,
		Unread:          item.Unread(),
		Size:            item.Size(),
		Categories:      item.Categories(),
		Importance:      item.Importance(),
		AttachmentCount: item.AttachmentCount(),
	}
}

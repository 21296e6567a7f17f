// Package export serializes one run's aggregated rows into a CSV
// workbook: an Emails section, a Filters section summarizing the
// configuration, and an Attachments section when anything was saved.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/griffgriff5000/Spotlight-on-Outlook/engine"
	"github.com/griffgriff5000/Spotlight-on-Outlook/model"
)

const (
	EmailsFile      = "Emails.csv"
	FiltersFile     = "Filters.csv"
	AttachmentsFile = "Attachments.csv"
)

var emailHeader = []string{
	"ReceivedTime", "Subject", "SenderName", "SenderEmail", "To", "CC", "BCC",
	"Categories", "Importance", "Unread", "HasAttachments", "AttachmentCount",
	"SavedAttachmentCount", "SavedAttachmentNames", "AttachmentsFolder", "OpenAttachments",
	"Size", "FolderPath", "ConversationID", "EntryID", "BodyPreview",
}

var attachmentHeader = []string{
	"ReceivedTime", "Subject", "SenderEmail", "AttachmentName", "AttachmentPath", "Link",
}

// Writer persists the workbook into Dir, creating it on demand.
type Writer struct {
	Dir string
}

// Write emits the Emails and Filters sections and, when attachment rows
// exist, the Attachments section. Returns the paths written.
func (w *Writer) Write(result *engine.Result, opts model.FilterOptions) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	var written []string

	emailsPath := filepath.Join(w.Dir, EmailsFile)
	if err := writeCSV(emailsPath, emailHeader, emailRecords(result.Rows)); err != nil {
		return written, err
	}
	written = append(written, emailsPath)

	filtersPath := filepath.Join(w.Dir, FiltersFile)
	if err := writeCSV(filtersPath, []string{"Filter", "Value"}, filterRecords(opts)); err != nil {
		return written, err
	}
	written = append(written, filtersPath)

	if len(result.Attachments) > 0 {
		attachmentsPath := filepath.Join(w.Dir, AttachmentsFile)
		if err := writeCSV(attachmentsPath, attachmentHeader, attachmentRecords(result.Attachments)); err != nil {
			return written, err
		}
		written = append(written, attachmentsPath)
	}

	return written, nil
}

func emailRecords(rows []model.ResultRow) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ReceivedTime, r.Subject, r.SenderName, r.SenderEmail, r.To, r.CC, r.BCC,
			r.Categories, r.Importance,
			strconv.FormatBool(r.Unread), strconv.FormatBool(r.HasAttachments),
			strconv.Itoa(r.AttachmentCount), strconv.Itoa(r.SavedAttachmentCount),
			r.AttachmentNames, r.AttachmentsFolder, r.OpenAttachments,
			strconv.FormatInt(r.Size, 10),
			r.FolderPath, r.ConversationID, r.EntryID, r.BodyPreview,
		})
	}
	return records
}

func filterRecords(opts model.FilterOptions) [][]string {
	summary := opts.Summary()
	records := make([][]string, 0, len(summary))
	for _, kv := range summary {
		records = append(records, []string{kv[0], kv[1]})
	}
	return records
}

func attachmentRecords(rows []model.AttachmentRow) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ReceivedTime, r.Subject, r.SenderEmail, r.AttachmentName, r.AttachmentPath, r.Link,
		})
	}
	return records
}

func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write %s header: %w", filepath.Base(path), err)
	}
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

package workitem

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet column headers. Headers of the form "metadata.<key>" populate the
// metadata map.
const (
	ColumnCallID        = "call_id"
	ColumnRecordingURL  = "recording_url"
	ColumnOwnerID       = "owner_id"
	ColumnAgentID       = "agent_id"
	ColumnCreatedAt     = "created_at"
	ColumnLanguage      = "language"
	ColumnWebhookURL    = "webhook_url"
	ColumnSaveRecording = "save_recording"

	metadataPrefix = "metadata."
)

var ErrEmptySheet = errors.New("sheet has no header row")

// RowError is a sheet row that could not be turned into a work item. Row
// is the 1-based spreadsheet row number.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadSheet parses work items from an .xlsx workbook. The first row holds
// column headers; an empty sheet name selects the first sheet. Rows that
// fail to parse are reported in the returned RowErrors and skipped. A
// missing created_at defaults to now.
func ReadSheet(r io.Reader, sheet string, now time.Time) ([]CallWorkItem, []*RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptySheet
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var (
		items   []CallWorkItem
		rowErrs []*RowError
	)

	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}

		item, err := parseRow(headers, row, now)
		if err != nil {
			rowErrs = append(rowErrs, &RowError{Row: i + 2, Err: err})
			continue
		}
		items = append(items, item)
	}

	return items, rowErrs, nil
}

func parseRow(headers, row []string, now time.Time) (CallWorkItem, error) {
	var item CallWorkItem

	for i, header := range headers {
		if i >= len(row) {
			break
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}

		switch header {
		case ColumnCallID:
			item.CallID = value
		case ColumnRecordingURL:
			item.StereoRecordingURL = value
		case ColumnOwnerID:
			item.OwnerID = value
		case ColumnAgentID:
			item.AgentID = value
		case ColumnLanguage:
			item.Language = value
		case ColumnWebhookURL:
			item.WebhookURL = value
		case ColumnCreatedAt:
			t, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return item, fmt.Errorf("%s: %w", ColumnCreatedAt, err)
			}
			item.CreatedAt = &t
		case ColumnSaveRecording:
			save, err := strconv.ParseBool(value)
			if err != nil {
				return item, fmt.Errorf("%s: %w", ColumnSaveRecording, err)
			}
			item.SaveRecording = &save
		default:
			if key, ok := strings.CutPrefix(header, metadataPrefix); ok && key != "" {
				if item.Metadata == nil {
					item.Metadata = make(map[string]string)
				}
				item.Metadata[key] = value
			}
		}
	}

	if item.CreatedAt == nil {
		item.CreatedAt = &now
	}
	return item, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

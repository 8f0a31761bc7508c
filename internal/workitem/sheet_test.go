package workitem_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JaimeStill/vigil/internal/workitem"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadSheet(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	buf := buildWorkbook(t, [][]any{
		{"Call_ID", "recording_url", "owner_id", "agent_id", "created_at", "save_recording", "metadata.region"},
		{"c1", "https://store/1.wav", "org1", "a1", "2024-01-01T00:00:00Z", "false", "emea"},
		{},
		{"c2", "https://store/2.wav", "org1", "a2"},
	})

	items, rowErrs, err := workitem.ReadSheet(buf, "", now)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "c1", first.CallID)
	assert.Equal(t, "https://store/1.wav", first.StereoRecordingURL)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.CreatedAt.UTC())
	assert.False(t, first.ShouldSaveRecording())
	assert.Equal(t, map[string]string{"region": "emea"}, first.Metadata)

	second := items[1]
	assert.Equal(t, "a2", second.AgentID)
	assert.Equal(t, now, *second.CreatedAt)
	assert.True(t, second.ShouldSaveRecording())
	assert.Nil(t, second.Metadata)
}

func TestReadSheetReportsBadRows(t *testing.T) {
	buf := buildWorkbook(t, [][]any{
		{"call_id", "recording_url", "owner_id", "created_at", "save_recording"},
		{"c1", "https://store/1.wav", "org1", "yesterday"},
		{"c2", "https://store/2.wav", "org1", "", "maybe"},
		{"c3", "https://store/3.wav", "org1"},
	})

	items, rowErrs, err := workitem.ReadSheet(buf, "Sheet1", time.Now())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c3", items[0].CallID)

	require.Len(t, rowErrs, 2)
	assert.Equal(t, 2, rowErrs[0].Row)
	assert.Contains(t, rowErrs[0].Error(), "created_at")
	assert.Equal(t, 3, rowErrs[1].Row)
	assert.Contains(t, rowErrs[1].Error(), "save_recording")
}

func TestReadSheetEmpty(t *testing.T) {
	buf := buildWorkbook(t, nil)

	_, _, err := workitem.ReadSheet(buf, "", time.Now())
	assert.ErrorIs(t, err, workitem.ErrEmptySheet)
}

func TestReadSheetUnknownSheet(t *testing.T) {
	buf := buildWorkbook(t, [][]any{{"call_id"}})

	_, _, err := workitem.ReadSheet(buf, "Missing", time.Now())
	assert.Error(t, err)
}

package export

import (
	"testing"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportRequests(t *testing.T) {
	logger := zerolog.Nop()
	exporter := NewExporter(t.TempDir(), &logger)

	assignee := int64(5)
	completedAt := time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)
	requests := []*models.Request{
		{
			ID:                1,
			CustomID:          "REQ-000001",
			UserID:            10,
			ServiceID:         2,
			LocationID:        3,
			Status:            models.StatusPending,
			ExecutionDateTime: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		},
		{
			ID:                2,
			CustomID:          "REQ-000002",
			UserID:            11,
			ServiceID:         2,
			LocationID:        4,
			AssignedToID:      &assignee,
			Status:            models.StatusCompleted,
			ExecutionDateTime: time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC),
			CompletedAt:       &completedAt,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		},
	}

	path, err := exporter.ExportRequests(requests)
	require.NoError(t, err)
	assert.Contains(t, path, "requests_export_")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Status", rows[0][6])

	assert.Equal(t, "REQ-000001", rows[1][1])
	assert.Equal(t, string(models.StatusPending), rows[1][6])

	assert.Equal(t, "REQ-000002", rows[2][1])
	assert.Equal(t, "5", rows[2][5])
	assert.Equal(t, string(models.StatusCompleted), rows[2][6])
	assert.Equal(t, "30.08.2026 15:00", rows[2][8])
}

func TestExportRequestsEmpty(t *testing.T) {
	logger := zerolog.Nop()
	exporter := NewExporter(t.TempDir(), &logger)

	path, err := exporter.ExportRequests(nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

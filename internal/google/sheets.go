package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsService mirrors service requests into a Google spreadsheet. One row
// per request in the "Requests" sheet, keyed by request ID in column A.
type SheetsService struct {
	service  *sheets.Service
	sheetID  string
	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	// Создаем JWT конфигурацию
	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:  srv,
		sheetID:  spreadsheetID,
		rowCache: make(map[int64]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.sheetID, "Requests!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, "Requests!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		var id int64
		switch v := row[0].(type) {
		case float64:
			id = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &id)
		}
		if id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendRequest добавляет новую заявку в конец листа
func (s *SheetsService) AppendRequest(ctx context.Context, req *models.Request) error {
	rangeData := "Requests!A:A"
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{requestRowValues(req)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.sheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// UpsertRequest updates an existing request row or appends a new one if not found.
func (s *SheetsService) UpsertRequest(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}

	rowIdx, err := s.FindRequestRow(ctx, req.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.AppendRequest(ctx, req)
		}
		return err
	}

	rangeData := fmt.Sprintf("Requests!A%d:K%d", rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{requestRowValues(req)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateRequestStatus updates status (and UpdatedAt) for a request row.
func (s *SheetsService) UpdateRequestStatus(ctx context.Context, requestID int64, status models.Status) error {
	rowIdx, err := s.FindRequestRow(ctx, requestID)
	if err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")

	statusRange := fmt.Sprintf("Requests!G%d:G%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{string(status)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("Requests!K%d:K%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindRequestRow locates row index (1-based) for a request ID in column A with cache.
func (s *SheetsService) FindRequestRow(ctx context.Context, requestID int64) (int, error) {
	if requestID == 0 {
		return 0, fmt.Errorf("request id is required")
	}

	if row, ok := s.getCachedRow(requestID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, "Requests!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		switch v := row[0].(type) {
		case float64:
			if int64(v) == requestID {
				rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
				s.setCachedRow(requestID, rowIdx)
				return rowIdx, nil
			}
		case string:
			// if ID stored as string
			if v == fmt.Sprintf("%d", requestID) {
				rowIdx := i + 1
				s.setCachedRow(requestID, rowIdx)
				return rowIdx, nil
			}
		}
	}

	return 0, errRowNotFound
}

var errRowNotFound = errors.New("request row not found")

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func requestRowValues(req *models.Request) []interface{} {
	assignedTo := ""
	if req.AssignedToID != nil {
		assignedTo = fmt.Sprintf("%d", *req.AssignedToID)
	}
	completedAt := ""
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.Format("2006-01-02 15:04:05")
	}

	return []interface{}{
		req.ID,
		req.CustomID,
		req.UserID,
		req.ServiceID,
		req.LocationID,
		assignedTo,
		string(req.Status),
		req.ExecutionDateTime.Format("2006-01-02 15:04:05"),
		completedAt,
		req.CreatedAt.Format("2006-01-02 15:04:05"),
		req.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"
)

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var input domain.CreateRequestInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := s.requests.Create(r.Context(), input, principal.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	filter, err := parseRequestFilter(r, principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requests, err := s.requests.FindAll(r.Context(), principal, filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleCountRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	filter, err := parseRequestFilter(r, principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := s.requests.Count(r.Context(), principal, filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	req, err := s.requests.FindOne(r.Context(), id, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var patch domain.UpdateRequestInput
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := s.requests.Update(r.Context(), id, patch, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if err := s.requests.Remove(r.Context(), id, principal); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		AssignedToID int64 `json:"assigned_to_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.AssignedToID == 0 {
		writeError(w, http.StatusBadRequest, "assigned_to_id is required")
		return
	}

	req, err := s.requests.Assign(r.Context(), id, body.AssignedToID, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := s.requests.RequestCancellation(r.Context(), id, body.Reason, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := s.requests.Complete(r.Context(), id, body.Notes, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleExportRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if s.exporter == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	filter, err := parseRequestFilter(r, principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = models.MaxPageSize

	requests, err := s.requests.FindAll(r.Context(), principal, filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	filePath, err := s.exporter.ExportRequests(requests)
	if err != nil {
		s.logger.Error().Err(err).Msg("export error")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=requests.xlsx")
	http.ServeFile(w, r, filePath)
}

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	if s.attachments == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	path, err := s.attachments.SaveAttachment(principal.UserID, name, r.Body)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", principal.UserID).Msg("attachment save error")
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := s.notifications.List(r.Context(), principal.UserID, unreadOnly)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.notifications.MarkRead(r.Context(), id, principal.UserID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var body struct {
		Name     string         `json:"name"`
		Template models.JSONMap `json:"template,omitempty"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	svc, err := s.catalog.CreateService(r.Context(), body.Name, body.Template, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.catalog.ListServices(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	svc, err := s.catalog.GetService(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var body struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	loc, err := s.catalog.CreateLocation(r.Context(), body.Name, body.Address, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	loc, err := s.catalog.GetLocation(r.Context(), id, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFrom(r.Context())

	var body struct {
		Email string      `json:"email"`
		Name  string      `json:"name"`
		Role  models.Role `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.users.CreateUser(r.Context(), body.Email, body.Name, body.Role, principal)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	// Токен отдается только в момент создания
	writeJSON(w, http.StatusCreated, map[string]any{"user": user, "token": user.Token})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := models.Role(strings.TrimSpace(r.URL.Query().Get("role")))
	if role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	users, err := s.users.ListByRole(r.Context(), role)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// writeDomainError maps the domain error taxonomy onto HTTP status codes.
// Internal errors are logged in full but reported generically.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
}

func parseRequestFilter(r *http.Request, principal models.Principal) (models.RequestFilter, error) {
	var filter models.RequestFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			return filter, errors.New("unknown status " + raw)
		}
		filter.Status = &status
	}

	if raw := strings.TrimSpace(q.Get("service_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid service_id")
		}
		filter.ServiceID = &id
	}

	if raw := strings.TrimSpace(q.Get("assigned_to")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid assigned_to")
		}
		filter.AssignedToID = &id
	}

	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := parseFilterTime(raw)
		if err != nil {
			return filter, errors.New("invalid from date")
		}
		filter.ExecutionFrom = &from
	}

	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := parseFilterTime(raw)
		if err != nil {
			return filter, errors.New("invalid to date")
		}
		filter.ExecutionTo = &to
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = limit
	}

	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, errors.New("invalid offset")
		}
		filter.Offset = offset
	}

	// Soft-deleted rows are visible to admin tooling only
	if principal.IsAdmin() && q.Get("include_deleted") == "true" {
		filter.IncludeDeleted = true
	}

	return filter, nil
}

func parseFilterTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

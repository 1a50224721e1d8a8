package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/events"
	"github.com/Alkitu/alkitu-template-sub002/internal/metrics"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
)

// RequestService orchestrates the request lifecycle: validation, role-based
// access, persistence, and best-effort side effects (notifications, events,
// sync tasks). Side-effect failures are logged and never fail the primary
// mutation.
type RequestService struct {
	repo          domain.Repository
	notifications domain.NotificationService
	eventBus      domain.EventPublisher
	syncWorker    domain.SyncWorker
	logger        *zerolog.Logger
}

func NewRequestService(repo domain.Repository, notifications domain.NotificationService, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		repo:          repo,
		notifications: notifications,
		eventBus:      eventBus,
		syncWorker:    syncWorker,
		logger:        logger,
	}
}

func (s *RequestService) Create(ctx context.Context, input domain.CreateRequestInput, clientID int64) (*models.Request, error) {
	// Все проверки выполняются до записи
	svc, err := s.repo.GetService(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("service %d not found", input.ServiceID)
		}
		return nil, domain.WrapInternal(err, "get service")
	}
	if !svc.Active {
		return nil, domain.NotFoundf("service %d not found", input.ServiceID)
	}

	loc, err := s.repo.GetLocation(ctx, input.LocationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("location %d not found", input.LocationID)
		}
		return nil, domain.WrapInternal(err, "get location")
	}
	if loc.UserID != clientID {
		// Чужая локация неотличима от несуществующей
		return nil, domain.NotFoundf("location %d not found", input.LocationID)
	}

	if !input.ExecutionDateTime.After(time.Now()) {
		return nil, domain.BadRequestf("execution date must be in the future")
	}

	now := time.Now()
	req := &models.Request{
		UserID:            clientID,
		ServiceID:         input.ServiceID,
		LocationID:        input.LocationID,
		Status:            models.StatusPending,
		ExecutionDateTime: input.ExecutionDateTime,
		TemplateResponses: input.TemplateResponses,
		Note:              input.Note,
		CreatedBy:         clientID,
		UpdatedBy:         clientID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, domain.WrapInternal(err, "create request")
	}

	s.notify(ctx, clientID, models.NotificationRequestCreated,
		fmt.Sprintf("Your request %s has been created", req.CustomID), req)
	s.notifyAdmins(ctx, models.NotificationRequestCreated,
		fmt.Sprintf("New request %s from client %d", req.CustomID, clientID), req)

	actor := models.Principal{UserID: clientID, Role: models.RoleClient}
	s.publishEvent(events.EventRequestCreated, req, "", actor)
	s.enqueueUpsert(ctx, req)

	return req, nil
}

func (s *RequestService) FindAll(ctx context.Context, actor models.Principal, filter models.RequestFilter) ([]*models.Request, error) {
	requests, err := s.repo.ListRequests(ctx, filter, actor)
	if err != nil {
		return nil, domain.WrapInternal(err, "list requests")
	}
	return requests, nil
}

func (s *RequestService) FindOne(ctx context.Context, id int64, actor models.Principal) (*models.Request, error) {
	req, err := s.getVisible(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) Update(ctx context.Context, id int64, patch domain.UpdateRequestInput, actor models.Principal) (*models.Request, error) {
	req, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	// Порядок проверок: ownership → status → fields → date → transition
	switch {
	case actor.IsClient():
		if req.UserID != actor.UserID {
			return nil, domain.Forbiddenf("request %d does not belong to you", id)
		}
	case actor.IsEmployee():
		if req.AssignedToID != nil && *req.AssignedToID != actor.UserID {
			return nil, domain.Forbiddenf("request %d is assigned to another employee", id)
		}
	}

	if actor.IsClient() {
		if req.Status != models.StatusPending {
			return nil, domain.Forbiddenf("clients may only edit pending requests, current status is %s", req.Status)
		}
		if patch.Status != nil || patch.AssignedToID != nil {
			return nil, domain.Forbiddenf("clients may not change status or assignment")
		}
	}

	if patch.ExecutionDateTime != nil && !patch.ExecutionDateTime.After(time.Now()) {
		return nil, domain.BadRequestf("execution date must be in the future")
	}

	fromStatus := req.Status
	if patch.Status != nil {
		// Переход проверяется против итогового исполнителя
		resultingAssignee := req.AssignedToID
		if patch.AssignedToID != nil {
			resultingAssignee = patch.AssignedToID
		}
		if err := models.ValidateTransitionWithRules(req.Status, *patch.Status, resultingAssignee); err != nil {
			return nil, domain.BadRequestf("%v", err)
		}
	}

	now := time.Now()
	if patch.ExecutionDateTime != nil {
		req.ExecutionDateTime = *patch.ExecutionDateTime
	}
	if patch.AssignedToID != nil {
		req.AssignedToID = patch.AssignedToID
	}
	if patch.LocationID != nil {
		req.LocationID = *patch.LocationID
	}
	if patch.TemplateResponses != nil {
		req.TemplateResponses = *patch.TemplateResponses
	}
	if patch.Note != nil {
		req.Note = *patch.Note
	}
	if patch.Status != nil && *patch.Status != req.Status {
		req.Status = *patch.Status
		if req.Status == models.StatusCompleted {
			req.CompletedAt = &now
		}
		metrics.IncTransition(string(fromStatus), string(req.Status))
	}
	req.UpdatedBy = actor.UserID
	req.UpdatedAt = now

	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return nil, s.storeErr(err, id, "update request")
	}

	s.publishEvent(events.EventRequestUpdated, req, string(fromStatus), actor)
	s.enqueueUpsert(ctx, req)

	return req, nil
}

func (s *RequestService) Remove(ctx context.Context, id int64, actor models.Principal) error {
	req, err := s.getStored(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() {
		if req.UserID != actor.UserID {
			return domain.Forbiddenf("request %d does not belong to you", id)
		}
		if req.Status != models.StatusPending {
			return domain.Forbiddenf("only pending requests can be deleted, current status is %s", req.Status)
		}
	}

	if err := s.repo.SoftDeleteRequest(ctx, id, actor.UserID); err != nil {
		return s.storeErr(err, id, "delete request")
	}

	s.publishEvent(events.EventRequestDeleted, req, string(req.Status), actor)
	return nil
}

func (s *RequestService) Assign(ctx context.Context, id int64, assigneeID int64, actor models.Principal) (*models.Request, error) {
	// Клиенту отказываем до чтения, чтобы не раскрывать существование заявки
	if actor.IsClient() {
		return nil, domain.Forbiddenf("clients may not assign requests")
	}

	req, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != models.StatusPending {
		return nil, domain.BadRequestf("cannot assign request in status %s", req.Status)
	}

	assignee, err := s.repo.GetUser(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, domain.NotFoundf("user %d not found", assigneeID)
		}
		return nil, domain.WrapInternal(err, "get assignee")
	}
	if !assignee.Role.CanBeAssigned() {
		return nil, domain.BadRequestf("user %d cannot be assigned requests", assigneeID)
	}

	fromStatus := req.Status
	now := time.Now()
	req.AssignedToID = &assigneeID
	req.Status = models.StatusOngoing
	req.UpdatedBy = actor.UserID
	req.UpdatedAt = now

	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return nil, s.storeErr(err, id, "assign request")
	}
	metrics.IncTransition(string(fromStatus), string(req.Status))

	s.notify(ctx, assigneeID, models.NotificationRequestAssigned,
		fmt.Sprintf("Request %s has been assigned to you", req.CustomID), req)
	s.notify(ctx, req.UserID, models.NotificationRequestAssigned,
		fmt.Sprintf("Your request %s is now in progress", req.CustomID), req)

	s.publishEvent(events.EventRequestAssigned, req, string(fromStatus), actor)
	s.enqueueStatusUpdate(ctx, req)

	return req, nil
}

func (s *RequestService) RequestCancellation(ctx context.Context, id int64, reason string, actor models.Principal) (*models.Request, error) {
	req, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && req.UserID != actor.UserID {
		return nil, domain.Forbiddenf("request %d does not belong to you", id)
	}

	if models.IsTerminal(req.Status) {
		return nil, domain.BadRequestf("cannot cancel request in status %s", req.Status)
	}

	fromStatus := req.Status
	now := time.Now()
	req.CancellationRequested = true
	req.CancellationRequestedAt = &now
	req.UpdatedBy = actor.UserID
	req.UpdatedAt = now

	// PENDING-заявки и запросы администратора отменяются сразу
	autoApproved := req.Status == models.StatusPending || actor.IsAdmin()
	if autoApproved {
		req.Status = models.StatusCancelled
	}

	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return nil, s.storeErr(err, id, "cancel request")
	}
	if autoApproved {
		metrics.IncTransition(string(fromStatus), string(req.Status))
	}

	data := models.JSONMap{"request_id": req.ID, "custom_id": req.CustomID}
	if reason != "" {
		data["reason"] = reason
	}
	notifType := models.NotificationCancellationRequested
	message := fmt.Sprintf("Cancellation requested for %s", req.CustomID)
	if autoApproved {
		notifType = models.NotificationRequestCancelled
		message = fmt.Sprintf("Request %s has been cancelled", req.CustomID)
	}
	s.notifyAdminsWithData(ctx, notifType, message, data)
	if req.AssignedToID != nil {
		s.notifyWithData(ctx, *req.AssignedToID, notifType, message, data)
	}

	eventType := events.EventRequestCancelRequested
	if autoApproved {
		eventType = events.EventRequestCancelled
	}
	s.publishEvent(eventType, req, string(fromStatus), actor)
	if autoApproved {
		s.enqueueStatusUpdate(ctx, req)
	}

	return req, nil
}

func (s *RequestService) Complete(ctx context.Context, id int64, notes string, actor models.Principal) (*models.Request, error) {
	if actor.IsClient() {
		return nil, domain.Forbiddenf("clients may not complete requests")
	}

	req, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != models.StatusOngoing {
		return nil, domain.BadRequestf("cannot complete request in status %s", req.Status)
	}

	if !actor.IsAdmin() {
		if req.AssignedToID == nil || *req.AssignedToID != actor.UserID {
			return nil, domain.Forbiddenf("request %d is not assigned to you", id)
		}
	}

	fromStatus := req.Status
	now := time.Now()
	req.Status = models.StatusCompleted
	req.CompletedAt = &now
	if notes != "" {
		// completionNotes дописывается в существующий note, не заменяя его
		if req.Note == nil {
			req.Note = models.JSONMap{}
		}
		req.Note[models.NoteCompletionKey] = notes
	}
	req.UpdatedBy = actor.UserID
	req.UpdatedAt = now

	if err := s.repo.UpdateRequest(ctx, req); err != nil {
		return nil, s.storeErr(err, id, "complete request")
	}
	metrics.IncTransition(string(fromStatus), string(req.Status))

	s.notify(ctx, req.UserID, models.NotificationRequestCompleted,
		fmt.Sprintf("Your request %s has been completed", req.CustomID), req)

	s.publishEvent(events.EventRequestCompleted, req, string(fromStatus), actor)
	s.enqueueStatusUpdate(ctx, req)

	return req, nil
}

func (s *RequestService) Count(ctx context.Context, actor models.Principal, filter models.RequestFilter) (int64, error) {
	count, err := s.repo.CountRequests(ctx, filter, actor)
	if err != nil {
		return 0, domain.WrapInternal(err, "count requests")
	}
	return count, nil
}

// getStored loads a request by id, mapping store errors to domain errors.
func (s *RequestService) getStored(ctx context.Context, id int64) (*models.Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, id, "get request")
	}
	return req, nil
}

// getVisible loads a request and hides it behind NotFound when it exists but
// is outside the actor's scope, so scope violations never leak existence.
func (s *RequestService) getVisible(ctx context.Context, id int64, actor models.Principal) (*models.Request, error) {
	req, err := s.getStored(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsAdmin():
		return req, nil
	case actor.IsClient() && req.UserID == actor.UserID:
		return req, nil
	case actor.IsEmployee() && (req.AssignedToID == nil || *req.AssignedToID == actor.UserID):
		return req, nil
	}
	return nil, domain.NotFoundf("request %d not found", id)
}

func (s *RequestService) storeErr(err error, id int64, op string) error {
	if errors.Is(err, database.ErrNotFound) {
		return domain.NotFoundf("request %d not found", id)
	}
	return domain.WrapInternal(err, op)
}

func (s *RequestService) notify(ctx context.Context, userID int64, notifType, message string, req *models.Request) {
	s.notifyWithData(ctx, userID, notifType, message,
		models.JSONMap{"request_id": req.ID, "custom_id": req.CustomID})
}

func (s *RequestService) notifyWithData(ctx context.Context, userID int64, notifType, message string, data models.JSONMap) {
	if s.notifications == nil {
		return
	}
	err := s.notifications.CreateNotification(ctx, domain.NotificationInput{
		UserID:  userID,
		Type:    notifType,
		Message: message,
		Data:    data,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Str("type", notifType).Msg("notification error")
	}
}

func (s *RequestService) notifyAdmins(ctx context.Context, notifType, message string, req *models.Request) {
	s.notifyAdminsWithData(ctx, notifType, message,
		models.JSONMap{"request_id": req.ID, "custom_id": req.CustomID})
}

func (s *RequestService) notifyAdminsWithData(ctx context.Context, notifType, message string, data models.JSONMap) {
	admins, err := s.repo.ListUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Error().Err(err).Msg("list admins error")
		return
	}
	for _, admin := range admins {
		s.notifyWithData(ctx, admin.ID, notifType, message, data)
	}
}

func (s *RequestService) publishEvent(eventType string, req *models.Request, fromStatus string, actor models.Principal) {
	if s.eventBus == nil {
		return
	}

	payload := events.RequestEventPayload{
		RequestID:    req.ID,
		CustomID:     req.CustomID,
		UserID:       req.UserID,
		ServiceID:    req.ServiceID,
		AssignedToID: req.AssignedToID,
		FromStatus:   fromStatus,
		Status:       string(req.Status),
		ActorID:      actor.UserID,
		ActorRole:    string(actor.Role),
		OccurredAt:   time.Now(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("request_id", req.ID).Msg("publish event error")
	}
}

func (s *RequestService) enqueueUpsert(ctx context.Context, req *models.Request) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueRequestUpsert(ctx, req); err != nil {
		s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("sync enqueue error")
	}
}

func (s *RequestService) enqueueStatusUpdate(ctx context.Context, req *models.Request) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueStatusUpdate(ctx, req.ID, req.Status); err != nil {
		s.logger.Error().Err(err).Int64("request_id", req.ID).Msg("sync enqueue error")
	}
}

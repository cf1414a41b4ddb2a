package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketService coordinates the ticket lifecycle: creation with
// auto-assignment, partial updates, status changes, customer reschedules
// and deletion. Every operation takes an explicit actor.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	documents  repository.DocumentRepository
	history    repository.TicketHistoryRepository
	assigner   *AssignmentService
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	UserRepo     repository.UserRepository
	DocumentRepo repository.DocumentRepository
	HistoryRepo  repository.TicketHistoryRepository
	Assigner     *AssignmentService
	Dispatcher   events.Dispatcher
	Now          func() time.Time
}

// TicketCreateInput describes ticket creation payload. DocumentIDs and
// SupportUserIDs are honored only for admin actors.
type TicketCreateInput struct {
	CustomerName   string
	CompanyName    string
	CompanyAddress string
	MeetDate       time.Time
	MeetTime       string
	DocumentIDs    []string
	SupportUserIDs []string
}

// RescheduleInput carries the new meeting slot for a status change to
// RESCHEDULED.
type RescheduleInput struct {
	Date time.Time
	Time string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		documents:  deps.DocumentRepo,
		history:    deps.HistoryRepo,
		assigner:   deps.Assigner,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Create validates input, resolves assignees (explicit for admins,
// auto-assigned otherwise) and persists the ticket with its relationship
// rows in one transaction.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.CustomerName) == "" ||
		strings.TrimSpace(input.CompanyName) == "" ||
		strings.TrimSpace(input.CompanyAddress) == "" ||
		input.MeetDate.IsZero() || input.MeetTime == "" {
		return nil, apperrors.NewValidationError("customer name, company name, company address, meeting date and meeting time are required", nil)
	}
	if !domain.ValidMeetTime(input.MeetTime) {
		return nil, apperrors.NewValidationError("meeting time is not a bookable slot", map[string]any{"meet_time": input.MeetTime})
	}
	if domain.BeforeDay(input.MeetDate, s.now()) {
		return nil, apperrors.NewValidationError("meeting date must not be in the past", nil)
	}

	documentIDs := []string{}
	supportUserIDs := []string{}
	if actor.IsAdmin() {
		// Non-admin-supplied relation ids are silently dropped, matching
		// the legacy client contract.
		documentIDs = dedupe(input.DocumentIDs)
		supportUserIDs = dedupe(input.SupportUserIDs)
	}

	if len(documentIDs) > 0 {
		docs, err := s.documents.GetByIDs(ctx, documentIDs)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(docs) != len(documentIDs) {
			return nil, apperrors.NewNotFound("one or more documents", nil)
		}
	}

	if len(supportUserIDs) > 0 {
		if err := s.requireSupportRole(ctx, supportUserIDs); err != nil {
			return nil, err
		}
	}

	autoAssigned := false
	if len(supportUserIDs) == 0 {
		assigneeID, err := s.assigner.SelectAssignee(ctx)
		if err != nil {
			if errors.Is(err, ErrNoSupportUsers) {
				return nil, apperrors.NewAssignmentFailed("failed to assign a support team member")
			}
			return nil, apperrors.MapError(err)
		}
		supportUserIDs = []string{assigneeID}
		autoAssigned = true
	}

	ticket := &domain.Ticket{
		CustomerUserID: actor.ID,
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CompanyName:    strings.TrimSpace(input.CompanyName),
		CompanyAddress: strings.TrimSpace(input.CompanyAddress),
		MeetDate:       domain.DateOnly(input.MeetDate),
		MeetTime:       input.MeetTime,
		Status:         domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket, documentIDs, supportUserIDs); err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: created.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			CustomerName:   created.CustomerName,
			CompanyName:    created.CompanyName,
			MeetDate:       created.MeetDate,
			MeetTime:       created.MeetTime,
			SupportUserIDs: supportUserIDs,
			AutoAssigned:   autoAssigned,
		},
	})
	return created, nil
}

// Get fetches a ticket for an admin or an assigned support user.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, []domain.TicketHistory, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !canManage(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID, 100, 0)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, history, nil
}

// List returns tickets scoped by the actor's role: admins see everything,
// support users their assignments, customers their own tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	filter := repository.TicketListFilter{}
	switch {
	case actor.IsAdmin():
	case actor.IsSupport():
		filter.AssigneeUserID = &actor.ID
	default:
		filter.CustomerUserID = &actor.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Update applies a partial update: relationship removals and additions,
// then scalar fields, as one transaction. Status changes inside the patch
// run through the same transition checks as ChangeStatus.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	docsToAdd := dedupe(patch.DocumentsToAdd)
	usersToAdd := dedupe(patch.SupportUsersToAdd)
	if len(docsToAdd) > 0 {
		docs, err := s.documents.GetByIDs(ctx, docsToAdd)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if len(docs) != len(docsToAdd) {
			return nil, apperrors.NewNotFound("one or more documents", nil)
		}
	}
	if len(usersToAdd) > 0 {
		if err := s.requireSupportRole(ctx, usersToAdd); err != nil {
			return nil, err
		}
	}

	oldStatus := ticket.Status
	merged := *ticket
	if err := s.mergeScalars(&merged, patch); err != nil {
		return nil, err
	}

	update := repository.TicketUpdate{
		Ticket:               &merged,
		DocumentsToAdd:       docsToAdd,
		DocumentsToRemove:    dedupe(patch.DocumentsToRemove),
		SupportUsersToAdd:    usersToAdd,
		SupportUsersToRemove: dedupe(patch.SupportUsersToRemove),
	}
	if err := s.tickets.Update(ctx, update); err != nil {
		return nil, mapTicketRepoError(err)
	}

	if merged.Status != oldStatus {
		s.recordStatusChange(ctx, actor.ID, ticket.ID, oldStatus, merged.Status)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: merged.Status},
		})
	}
	if len(update.DocumentsToAdd) > 0 || len(update.DocumentsToRemove) > 0 {
		s.recordDocumentChange(ctx, actor.ID, ticket.ID, update.DocumentsToAdd, update.DocumentsToRemove)
	}
	if len(update.SupportUsersToAdd) > 0 || len(update.SupportUsersToRemove) > 0 {
		s.recordAssigneeChange(ctx, actor.ID, ticket.ID, update.SupportUsersToAdd, update.SupportUsersToRemove)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketAssignedPayload{
				AddedUserIDs:   update.SupportUsersToAdd,
				RemovedUserIDs: update.SupportUsersToRemove,
			},
		})
	}

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// ChangeStatus moves a ticket through the status state machine. A change to
// RESCHEDULED requires the new slot.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus, reschedule *RescheduleInput) (*domain.Ticket, error) {
	patch := domain.TicketPatch{Status: &newStatus}
	if newStatus == domain.TicketStatusRescheduled {
		if reschedule == nil || reschedule.Date.IsZero() || reschedule.Time == "" {
			return nil, apperrors.NewValidationError("reschedule date and time are required", nil)
		}
		patch.RescheduledDate = domain.Set(reschedule.Date)
		patch.RescheduledTime = domain.Set(reschedule.Time)
	}
	return s.Update(ctx, actor, ticketID, patch)
}

// Reschedule is the customer-initiated reschedule: only the ticket's
// customer may call it, and resolved tickets are immutable.
func (s *TicketService) Reschedule(ctx context.Context, actor domain.Actor, ticketID string, newDate time.Time, newTime string) (*domain.Ticket, error) {
	if newDate.IsZero() || newTime == "" {
		return nil, apperrors.NewValidationError("reschedule date and time are required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerUserID != actor.ID {
		return nil, apperrors.NewForbidden("only the ticket's customer may reschedule")
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, apperrors.NewValidationError("cannot reschedule a resolved ticket", nil)
	}
	if domain.BeforeDay(newDate, s.now()) {
		return nil, apperrors.NewValidationError("select a future date", nil)
	}
	if !domain.ValidMeetTime(newTime) {
		return nil, apperrors.NewValidationError("meeting time is not a bookable slot", map[string]any{"meet_time": newTime})
	}

	oldStatus := ticket.Status
	merged := *ticket
	merged.Status = domain.TicketStatusRescheduled
	date := domain.DateOnly(newDate)
	merged.RescheduledDate = &date
	merged.RescheduledTime = &newTime

	if err := s.tickets.Update(ctx, repository.TicketUpdate{Ticket: &merged}); err != nil {
		return nil, mapTicketRepoError(err)
	}

	s.recordRescheduleChange(ctx, actor.ID, ticket.ID, oldStatus, date, newTime)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketRescheduled,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketRescheduledPayload{RescheduledDate: date, RescheduledTime: newTime},
	})

	updated, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// Delete removes a ticket and its relationship rows. Admin only.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapTicketRepoError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		ActorID:  actor.ID,
		Payload:  events.TicketDeletedPayload{CustomerName: ticket.CustomerName},
	})
	return nil
}

// mergeScalars folds the patch into the ticket copy, enforcing slot,
// transition and reschedule-pair invariants. Absent fields stay untouched;
// present-nil reschedule fields clear.
func (s *TicketService) mergeScalars(ticket *domain.Ticket, patch domain.TicketPatch) error {
	if patch.CustomerName != nil {
		ticket.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.CompanyName != nil {
		ticket.CompanyName = strings.TrimSpace(*patch.CompanyName)
	}
	if patch.CompanyAddress != nil {
		ticket.CompanyAddress = strings.TrimSpace(*patch.CompanyAddress)
	}
	if patch.MeetDate != nil {
		ticket.MeetDate = domain.DateOnly(*patch.MeetDate)
	}
	if patch.MeetTime != nil {
		if !domain.ValidMeetTime(*patch.MeetTime) {
			return apperrors.NewValidationError("meeting time is not a bookable slot", map[string]any{"meet_time": *patch.MeetTime})
		}
		ticket.MeetTime = *patch.MeetTime
	}

	if patch.RescheduledDate.Present {
		if patch.RescheduledDate.Value == nil {
			ticket.RescheduledDate = nil
		} else {
			if domain.BeforeDay(*patch.RescheduledDate.Value, s.now()) {
				return apperrors.NewValidationError("select a future date", nil)
			}
			date := domain.DateOnly(*patch.RescheduledDate.Value)
			ticket.RescheduledDate = &date
		}
	}
	if patch.RescheduledTime.Present {
		if patch.RescheduledTime.Value == nil {
			ticket.RescheduledTime = nil
		} else {
			if !domain.ValidMeetTime(*patch.RescheduledTime.Value) {
				return apperrors.NewValidationError("reschedule time is not a bookable slot", map[string]any{"rescheduled_time": *patch.RescheduledTime.Value})
			}
			value := *patch.RescheduledTime.Value
			ticket.RescheduledTime = &value
		}
	}

	if patch.Status != nil {
		next := *patch.Status
		if !domain.ValidStatus(next) {
			return apperrors.NewValidationError("unknown ticket status", map[string]any{"status": next})
		}
		if !domain.CanTransition(ticket.Status, next) {
			return apperrors.NewValidationError("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   next,
			})
		}
		ticket.Status = next
		if next == domain.TicketStatusRescheduled {
			if ticket.RescheduledDate == nil || ticket.RescheduledTime == nil {
				return apperrors.NewValidationError("reschedule date and time are required", nil)
			}
		} else {
			ticket.RescheduledDate = nil
			ticket.RescheduledTime = nil
		}
	}

	// The pair is set together, and only rescheduled tickets carry it,
	// whatever path set it.
	if (ticket.RescheduledDate == nil) != (ticket.RescheduledTime == nil) {
		return apperrors.NewValidationError("reschedule date and time must be set together", nil)
	}
	if (ticket.Status == domain.TicketStatusRescheduled) != (ticket.RescheduledDate != nil) {
		return apperrors.NewValidationError("reschedule fields are carried by rescheduled tickets only", nil)
	}
	return nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketRepoError(err)
	}
	return ticket, nil
}

func (s *TicketService) requireSupportRole(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("one or more support users invalid", map[string]any{"user_id": id})
			}
			return apperrors.MapError(err)
		}
		if user.Role != domain.RoleSupport {
			return apperrors.NewValidationError("one or more support users invalid", map[string]any{"user_id": id})
		}
	}
	return nil
}

func canManage(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	for _, user := range ticket.SupportUsers {
		if user.ID == actor.ID {
			return true
		}
	}
	return false
}

func mapTicketRepoError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID, ticketID string, oldStatus, newStatus domain.TicketStatus) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
	})
}

func (s *TicketService) recordAssigneeChange(ctx context.Context, actorID, ticketID string, added, removed []string) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeAssignees,
		OldValue:    map[string]any{"removed": removed},
		NewValue:    map[string]any{"added": added},
	})
}

func (s *TicketService) recordDocumentChange(ctx context.Context, actorID, ticketID string, added, removed []string) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeDocuments,
		OldValue:    map[string]any{"removed": removed},
		NewValue:    map[string]any{"added": added},
	})
}

func (s *TicketService) recordRescheduleChange(ctx context.Context, actorID, ticketID string, oldStatus domain.TicketStatus, date time.Time, slot string) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeReschedule,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue: map[string]any{
			"status":           domain.TicketStatusRescheduled,
			"rescheduled_date": date.Format("2006-01-02"),
			"rescheduled_time": slot,
		},
	})
}

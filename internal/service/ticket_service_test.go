package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestCreateTicketAutoAssigns(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)

	meetDate := testNow.AddDate(0, 0, 3)
	ticket, err := tickets.Create(context.Background(), actorFor(customer), TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       meetDate,
		MeetTime:       "10:30",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", ticket.Status)
	}
	if ticket.CustomerUserID != customer.ID {
		t.Fatalf("expected owner %s, got %s", customer.ID, ticket.CustomerUserID)
	}
	if len(ticket.SupportUsers) != 1 || ticket.SupportUsers[0].ID != support.ID {
		t.Fatalf("expected auto-assignment to %s, got %+v", support.ID, ticket.SupportUsers)
	}
	if !ticket.MeetDate.Equal(domain.DateOnly(meetDate)) || ticket.MeetTime != "10:30" {
		t.Fatalf("meeting slot not persisted: %v %s", ticket.MeetDate, ticket.MeetTime)
	}
	if ticket.RescheduledDate != nil || ticket.RescheduledTime != nil {
		t.Fatalf("new ticket must not carry reschedule fields")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	actor := actorFor(customer)
	base := TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       testNow.AddDate(0, 0, 1),
		MeetTime:       "10:30",
	}

	missing := base
	missing.CompanyName = ""
	_, err := tickets.Create(context.Background(), actor, missing)
	assertCode(t, err, "VALIDATION_FAILED")

	badSlot := base
	badSlot.MeetTime = "10:15"
	_, err = tickets.Create(context.Background(), actor, badSlot)
	assertCode(t, err, "VALIDATION_FAILED")

	past := base
	past.MeetDate = testNow.AddDate(0, 0, -1)
	_, err = tickets.Create(context.Background(), actor, past)
	assertCode(t, err, "VALIDATION_FAILED")

	// Same-day booking is allowed.
	today := base
	today.MeetDate = testNow
	if _, err := tickets.Create(context.Background(), actor, today); err != nil {
		t.Fatalf("same-day create: %v", err)
	}
}

func TestCreateTicketEmptySupportPool(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	customer := store.addUser("Casey", domain.RoleUser)

	_, err := tickets.Create(context.Background(), actorFor(customer), TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       testNow.AddDate(0, 0, 1),
		MeetTime:       "09:00",
	})
	assertCode(t, err, "ASSIGNMENT_FAILED")
	if len(store.tickets) != 0 {
		t.Fatalf("no ticket may persist when assignment fails")
	}
}

func TestCreateTicketAdminRelations(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	admin := store.addUser("Avery", domain.RoleAdmin)
	doc := store.addDocument("contract")

	input := TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       testNow.AddDate(0, 0, 2),
		MeetTime:       "11:00",
		DocumentIDs:    []string{doc.ID, doc.ID},
		SupportUserIDs: []string{support.ID},
	}
	ticket, err := tickets.Create(context.Background(), actorFor(admin), input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(ticket.Documents) != 1 || ticket.Documents[0].ID != doc.ID {
		t.Fatalf("expected linked document, got %+v", ticket.Documents)
	}
	if len(ticket.SupportUsers) != 1 || ticket.SupportUsers[0].ID != support.ID {
		t.Fatalf("expected explicit assignee, got %+v", ticket.SupportUsers)
	}

	unknownDoc := input
	unknownDoc.DocumentIDs = []string{"doc-missing"}
	_, err = tickets.Create(context.Background(), actorFor(admin), unknownDoc)
	assertCode(t, err, "NOT_FOUND")

	notSupport := input
	notSupport.SupportUserIDs = []string{admin.ID}
	_, err = tickets.Create(context.Background(), actorFor(admin), notSupport)
	assertCode(t, err, "VALIDATION_FAILED")

	if len(store.tickets) != 1 {
		t.Fatalf("failed creates must not persist, have %d tickets", len(store.tickets))
	}
}

func TestCreateTicketIgnoresRelationsForNonAdmin(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)

	// Bogus ids would fail validation if honored; for non-admins they are
	// dropped and auto-assignment runs instead.
	ticket, err := tickets.Create(context.Background(), actorFor(customer), TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       testNow.AddDate(0, 0, 1),
		MeetTime:       "09:30",
		DocumentIDs:    []string{"doc-nope"},
		SupportUserIDs: []string{"user-nope"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(ticket.Documents) != 0 {
		t.Fatalf("documents must be ignored for non-admin, got %+v", ticket.Documents)
	}
	if len(ticket.SupportUsers) != 1 || ticket.SupportUsers[0].ID != support.ID {
		t.Fatalf("expected auto-assignment, got %+v", ticket.SupportUsers)
	}
}

func TestUpdateAccessControl(t *testing.T) {
	// Pin the tie-break so the first support user gets the assignment.
	store, svc, _ := newTestEnv(func(int) int { return 0 })
	assigned := store.addUser("Sam", domain.RoleSupport)
	other := store.addUser("Riley", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)

	ticket := mustCreate(t, svc, actorFor(customer))

	name := "Updated Name"
	patch := domain.TicketPatch{CustomerName: &name}

	if _, err := svc.Update(context.Background(), actorFor(other), ticket.ID, patch); err == nil {
		t.Fatal("unassigned support user must not update")
	} else {
		assertCode(t, err, "FORBIDDEN")
	}
	if _, err := svc.Update(context.Background(), actorFor(customer), ticket.ID, patch); err == nil {
		t.Fatal("customer must not update via PATCH")
	} else {
		assertCode(t, err, "FORBIDDEN")
	}

	updated, err := svc.Update(context.Background(), actorFor(admin), ticket.ID, patch)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.CustomerName != name {
		t.Fatalf("expected %q, got %q", name, updated.CustomerName)
	}

	updated, err = svc.Update(context.Background(), actorFor(assigned), ticket.ID, patch)
	if err != nil {
		t.Fatalf("assigned support update: %v", err)
	}
	if updated.CustomerName != name {
		t.Fatalf("expected %q, got %q", name, updated.CustomerName)
	}
}

func TestResolvedIsTerminal(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))

	resolved, err := tickets.ChangeStatus(context.Background(), actorFor(admin), ticket.ID, domain.TicketStatusResolved, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Fatalf("expected RESOLVED, got %s", resolved.Status)
	}

	for _, next := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusRescheduled} {
		_, err := tickets.ChangeStatus(context.Background(), actorFor(admin), ticket.ID, next, &RescheduleInput{
			Date: testNow.AddDate(0, 0, 5),
			Time: "14:00",
		})
		assertCode(t, err, "VALIDATION_FAILED")
	}
}

func TestResolveClearsRescheduleFields(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))

	if _, err := tickets.Reschedule(context.Background(), actorFor(customer), ticket.ID, testNow.AddDate(0, 0, 5), "14:00"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	resolved, err := tickets.ChangeStatus(context.Background(), actorFor(admin), ticket.ID, domain.TicketStatusResolved, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.RescheduledDate != nil || resolved.RescheduledTime != nil {
		t.Fatalf("resolve must clear reschedule fields, got %v %v", resolved.RescheduledDate, resolved.RescheduledTime)
	}
}

func TestChangeStatusRescheduleRequiresSlot(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))

	_, err := tickets.ChangeStatus(context.Background(), actorFor(admin), ticket.ID, domain.TicketStatusRescheduled, nil)
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestRescheduleByCustomer(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	ticket := mustCreate(t, tickets, actorFor(customer))
	originalDate := ticket.MeetDate
	originalTime := ticket.MeetTime

	newDate := testNow.AddDate(0, 0, 10)
	updated, err := tickets.Reschedule(context.Background(), actorFor(customer), ticket.ID, newDate, "14:00")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if updated.Status != domain.TicketStatusRescheduled {
		t.Fatalf("expected RESCHEDULED, got %s", updated.Status)
	}
	if updated.RescheduledDate == nil || !updated.RescheduledDate.Equal(domain.DateOnly(newDate)) {
		t.Fatalf("rescheduled date not set: %v", updated.RescheduledDate)
	}
	if updated.RescheduledTime == nil || *updated.RescheduledTime != "14:00" {
		t.Fatalf("rescheduled time not set: %v", updated.RescheduledTime)
	}
	// The original slot stays; the reschedule is carried separately.
	if !updated.MeetDate.Equal(originalDate) || updated.MeetTime != originalTime {
		t.Fatalf("original slot must not change: %v %s", updated.MeetDate, updated.MeetTime)
	}

	// Re-rescheduling an already rescheduled ticket is allowed.
	if _, err := tickets.Reschedule(context.Background(), actorFor(customer), ticket.ID, newDate.AddDate(0, 0, 2), "15:30"); err != nil {
		t.Fatalf("second reschedule: %v", err)
	}

	// Only the owning customer may reschedule.
	_, err = tickets.Reschedule(context.Background(), actorFor(support), ticket.ID, newDate, "14:00")
	assertCode(t, err, "FORBIDDEN")

	found := false
	for _, entry := range store.history {
		if entry.TicketID == ticket.ID && entry.ChangeType == domain.ChangeTypeReschedule {
			found = true
		}
	}
	if !found {
		t.Fatal("reschedule must be recorded in ticket history")
	}
}

func TestRescheduleRejections(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	_, err := tickets.Reschedule(ctx, actorFor(customer), ticket.ID, testNow.AddDate(0, 0, -1), "14:00")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = tickets.Reschedule(ctx, actorFor(customer), ticket.ID, testNow.AddDate(0, 0, 5), "23:00")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = tickets.Reschedule(ctx, actorFor(customer), ticket.ID, time.Time{}, "")
	assertCode(t, err, "VALIDATION_FAILED")

	if _, err := tickets.ChangeStatus(ctx, actorFor(admin), ticket.ID, domain.TicketStatusResolved, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	_, err = tickets.Reschedule(ctx, actorFor(customer), ticket.ID, testNow.AddDate(0, 0, 5), "14:00")
	assertCode(t, err, "VALIDATION_FAILED")

	_, err = tickets.Reschedule(ctx, actorFor(customer), "ticket-missing", testNow.AddDate(0, 0, 5), "14:00")
	assertCode(t, err, "NOT_FOUND")
}

func TestUpdateRelationshipChanges(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	extra := store.addUser("Riley", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	doc := store.addDocument("contract")
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	updated, err := tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		DocumentsToAdd:    []string{doc.ID},
		SupportUsersToAdd: []string{extra.ID},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Documents) != 1 || len(updated.SupportUsers) != 2 {
		t.Fatalf("expected 1 doc and 2 assignees, got %d/%d", len(updated.Documents), len(updated.SupportUsers))
	}

	// Removing ids that are not linked is a no-op, not an error.
	updated, err = tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		DocumentsToRemove:    []string{"doc-unlinked"},
		SupportUsersToRemove: []string{"user-unlinked"},
	})
	if err != nil {
		t.Fatalf("no-op removal: %v", err)
	}
	if len(updated.Documents) != 1 || len(updated.SupportUsers) != 2 {
		t.Fatalf("no-op removal must not change links, got %d/%d", len(updated.Documents), len(updated.SupportUsers))
	}

	updated, err = tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		DocumentsToRemove:    []string{doc.ID},
		SupportUsersToRemove: []string{support.ID},
	})
	if err != nil {
		t.Fatalf("removal: %v", err)
	}
	if len(updated.Documents) != 0 {
		t.Fatalf("document not removed: %+v", updated.Documents)
	}
	if len(updated.SupportUsers) != 1 || updated.SupportUsers[0].ID != extra.ID {
		t.Fatalf("assignee not removed: %+v", updated.SupportUsers)
	}

	_, err = tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		DocumentsToAdd: []string{"doc-missing"},
	})
	assertCode(t, err, "NOT_FOUND")
}

func TestUpdatePairRequiresRescheduledStatus(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	// Setting the pair without moving the ticket to RESCHEDULED would leave
	// an OPEN ticket carrying reschedule fields.
	_, err := tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		RescheduledDate: domain.Set(testNow.AddDate(0, 0, 5)),
		RescheduledTime: domain.Set("14:00"),
	})
	assertCode(t, err, "VALIDATION_FAILED")

	got, _, err := tickets.Get(ctx, actorFor(admin), ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TicketStatusOpen || got.RescheduledDate != nil || got.RescheduledTime != nil {
		t.Fatalf("rejected patch must not persist, got %s %v %v", got.Status, got.RescheduledDate, got.RescheduledTime)
	}

	// The same pair with the transition is accepted.
	status := domain.TicketStatusRescheduled
	updated, err := tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		Status:          &status,
		RescheduledDate: domain.Set(testNow.AddDate(0, 0, 5)),
		RescheduledTime: domain.Set("14:00"),
	})
	if err != nil {
		t.Fatalf("reschedule via patch: %v", err)
	}
	if updated.Status != domain.TicketStatusRescheduled || updated.RescheduledDate == nil || updated.RescheduledTime == nil {
		t.Fatalf("expected RESCHEDULED with pair set, got %s %v %v", updated.Status, updated.RescheduledDate, updated.RescheduledTime)
	}

	// Clearing the pair while the ticket stays RESCHEDULED is just as
	// inconsistent.
	_, err = tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		RescheduledDate: domain.Null[time.Time](),
		RescheduledTime: domain.Null[string](),
	})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateRescheduleClear(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	if _, err := tickets.Reschedule(ctx, actorFor(customer), ticket.ID, testNow.AddDate(0, 0, 5), "14:00"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	// Clearing only one half of the pair violates the invariant.
	_, err := tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{
		RescheduledDate: domain.Null[time.Time](),
	})
	assertCode(t, err, "VALIDATION_FAILED")

	status := domain.TicketStatusResolved
	updated, err := tickets.Update(ctx, actorFor(admin), ticket.ID, domain.TicketPatch{Status: &status})
	if err != nil {
		t.Fatalf("resolve via patch: %v", err)
	}
	if updated.RescheduledDate != nil || updated.RescheduledTime != nil {
		t.Fatal("leaving RESCHEDULED must clear the pair")
	}
}

func TestDeleteTicket(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	err := tickets.Delete(ctx, actorFor(support), ticket.ID)
	assertCode(t, err, "FORBIDDEN")
	err = tickets.Delete(ctx, actorFor(customer), ticket.ID)
	assertCode(t, err, "FORBIDDEN")

	if err := tickets.Delete(ctx, actorFor(admin), ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, _, err = tickets.Get(ctx, actorFor(admin), ticket.ID)
	assertCode(t, err, "NOT_FOUND")

	err = tickets.Delete(ctx, actorFor(admin), ticket.ID)
	assertCode(t, err, "NOT_FOUND")
}

func TestListScopedByRole(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	support := store.addUser("Sam", domain.RoleSupport)
	other := store.addUser("Riley", domain.RoleSupport)
	customerA := store.addUser("Casey", domain.RoleUser)
	customerB := store.addUser("Drew", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ctx := context.Background()

	// Load balancing sends one ticket to each support user.
	mustCreate(t, tickets, actorFor(customerA))
	mustCreate(t, tickets, actorFor(customerB))

	all, err := tickets.List(ctx, actorFor(admin))
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin must see all tickets, got %d", len(all))
	}

	mine, err := tickets.List(ctx, actorFor(customerA))
	if err != nil {
		t.Fatalf("customer list: %v", err)
	}
	if len(mine) != 1 || mine[0].CustomerUserID != customerA.ID {
		t.Fatalf("customer must only see own tickets, got %+v", mine)
	}

	assignedA, err := tickets.List(ctx, actorFor(support))
	if err != nil {
		t.Fatalf("support list: %v", err)
	}
	assignedB, err := tickets.List(ctx, actorFor(other))
	if err != nil {
		t.Fatalf("support list: %v", err)
	}
	if len(assignedA)+len(assignedB) != 2 {
		t.Fatalf("support users together must see both tickets, got %d and %d", len(assignedA), len(assignedB))
	}
}

func TestGetAccessControl(t *testing.T) {
	store, tickets, _ := newTestEnv(nil)
	store.addUser("Sam", domain.RoleSupport)
	outsider := store.addUser("Riley", domain.RoleUser)
	customer := store.addUser("Casey", domain.RoleUser)
	admin := store.addUser("Avery", domain.RoleAdmin)
	ticket := mustCreate(t, tickets, actorFor(customer))
	ctx := context.Background()

	_, _, err := tickets.Get(ctx, actorFor(outsider), ticket.ID)
	assertCode(t, err, "FORBIDDEN")

	got, history, err := tickets.Get(ctx, actorFor(admin), ticket.ID)
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if got.ID != ticket.ID {
		t.Fatalf("expected ticket %s, got %s", ticket.ID, got.ID)
	}
	if history == nil {
		t.Fatal("history must be non-nil for admins")
	}
}

func mustCreate(t *testing.T, tickets *TicketService, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := tickets.Create(context.Background(), actor, TicketCreateInput{
		CustomerName:   "Casey Jordan",
		CompanyName:    "Acme",
		CompanyAddress: "1 Main St",
		MeetDate:       testNow.AddDate(0, 0, 2),
		MeetTime:       "10:00",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

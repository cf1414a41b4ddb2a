package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// fakeStore is an in-memory implementation of the repository interfaces the
// services depend on. Writes are tracked so tests can assert what persisted.
type fakeStore struct {
	mu sync.Mutex

	users     map[string]domain.User
	userOrder []string

	docs map[string]domain.Document

	tickets     map[string]domain.Ticket
	ticketOrder []string
	ticketDocs  map[string]map[string]bool
	assignees   map[string]map[string]bool

	history []domain.TicketHistory

	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]domain.User{},
		docs:       map[string]domain.Document{},
		tickets:    map[string]domain.Ticket{},
		ticketDocs: map[string]map[string]bool{},
		assignees:  map[string]map[string]bool{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq)
}

// --- UserRepository ---

func (f *fakeStore) addUser(firstName string, role domain.Role) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := domain.User{
		ID:        f.nextID("user"),
		FirstName: firstName,
		Email:     firstName + "@example.com",
		Role:      role,
	}
	f.users[user.ID] = user
	f.userOrder = append(f.userOrder, user.ID)
	return user
}

func (f *fakeStore) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID("user")
	f.users[user.ID] = *user
	f.userOrder = append(f.userOrder, user.ID)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []domain.User{}
	for _, id := range f.userOrder {
		if f.users[id].Role == role {
			result = append(result, f.users[id])
		}
	}
	return result, nil
}

// --- DocumentRepository ---

func (f *fakeStore) addDocument(title string) domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := domain.Document{ID: f.nextID("doc"), Title: title, FileName: title + ".pdf"}
	f.docs[doc.ID] = doc
	return doc
}

func (f *fakeStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.ID = f.nextID("doc")
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeStore) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []domain.Document{}
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			result = append(result, doc)
		}
	}
	return result, nil
}

func (f *fakeStore) List(ctx context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []domain.Document{}
	for _, doc := range f.docs {
		result = append(result, doc)
	}
	return result, nil
}

// documentRepo adapts fakeStore to repository.DocumentRepository; its Create
// collides with the user repository's, so the adapter disambiguates.
type documentRepo struct{ *fakeStore }

func (d documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	return d.CreateDocument(ctx, doc)
}

// --- TicketRepository ---

type ticketRepo struct{ *fakeStore }

func (t ticketRepo) Create(ctx context.Context, ticket *domain.Ticket, documentIDs, supportUserIDs []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket.ID = t.nextID("ticket")
	t.tickets[ticket.ID] = *ticket
	t.ticketOrder = append(t.ticketOrder, ticket.ID)
	t.ticketDocs[ticket.ID] = map[string]bool{}
	t.assignees[ticket.ID] = map[string]bool{}
	for _, id := range documentIDs {
		t.ticketDocs[ticket.ID][id] = true
	}
	for _, id := range supportUserIDs {
		t.assignees[ticket.ID][id] = true
	}
	return nil
}

func (t ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ticket, ok := t.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	t.expand(&ticket)
	return &ticket, nil
}

func (t ticketRepo) List(ctx context.Context, filter repository.TicketListFilter) ([]domain.Ticket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := []domain.Ticket{}
	for _, id := range t.ticketOrder {
		ticket := t.tickets[id]
		if filter.CustomerUserID != nil && ticket.CustomerUserID != *filter.CustomerUserID {
			continue
		}
		if filter.AssigneeUserID != nil && !t.assignees[id][*filter.AssigneeUserID] {
			continue
		}
		t.expand(&ticket)
		result = append(result, ticket)
	}
	return result, nil
}

func (t ticketRepo) Update(ctx context.Context, update repository.TicketUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := update.Ticket.ID
	if _, ok := t.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, docID := range update.DocumentsToRemove {
		delete(t.ticketDocs[id], docID)
	}
	for _, userID := range update.SupportUsersToRemove {
		delete(t.assignees[id], userID)
	}
	for _, docID := range update.DocumentsToAdd {
		t.ticketDocs[id][docID] = true
	}
	for _, userID := range update.SupportUsersToAdd {
		t.assignees[id][userID] = true
	}
	stored := *update.Ticket
	stored.Documents = nil
	stored.SupportUsers = nil
	t.tickets[id] = stored
	return nil
}

func (t ticketRepo) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(t.tickets, id)
	delete(t.ticketDocs, id)
	delete(t.assignees, id)
	for i, tid := range t.ticketOrder {
		if tid == id {
			t.ticketOrder = append(t.ticketOrder[:i], t.ticketOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (t ticketRepo) ActiveCountsByAssignee(ctx context.Context, userIDs []string) (map[string]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int, len(userIDs))
	for _, id := range userIDs {
		counts[id] = 0
	}
	for ticketID, users := range t.assignees {
		ticket := t.tickets[ticketID]
		if !ticket.IsActive() {
			continue
		}
		for _, id := range userIDs {
			if users[id] {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (t ticketRepo) expand(ticket *domain.Ticket) {
	ticket.Documents = nil
	ticket.SupportUsers = nil
	for docID := range t.ticketDocs[ticket.ID] {
		ticket.Documents = append(ticket.Documents, t.docs[docID])
	}
	for userID := range t.assignees[ticket.ID] {
		ticket.SupportUsers = append(ticket.SupportUsers, t.users[userID])
	}
}

// --- TicketHistoryRepository ---

type historyRepo struct{ *fakeStore }

func (h historyRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.ID = h.nextID("hist")
	h.history = append(h.history, *entry)
	return nil
}

func (h historyRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := []domain.TicketHistory{}
	for _, entry := range h.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// --- test environment ---

var testNow = time.Date(2026, time.August, 28, 10, 0, 0, 0, time.UTC)

func newTestEnv(intn func(int) int) (*fakeStore, *TicketService, *AssignmentService) {
	store := newFakeStore()
	assigner := NewAssignmentService(AssignmentDependencies{
		UserRepo:   store,
		TicketRepo: ticketRepo{store},
		Intn:       intn,
	})
	tickets := NewTicketService(TicketDependencies{
		TicketRepo:   ticketRepo{store},
		UserRepo:     store,
		DocumentRepo: documentRepo{store},
		HistoryRepo:  historyRepo{store},
		Assigner:     assigner,
		Now:          func() time.Time { return testNow },
	})
	return store, tickets, assigner
}

func actorFor(user domain.User) domain.Actor {
	return domain.Actor{ID: user.ID, Role: user.Role, DisplayName: user.DisplayName()}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, domainErr.Code, err)
	}
}

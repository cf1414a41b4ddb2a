package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// ErrNoSupportUsers signals an empty auto-assignment pool. Callers surface
// it as an assignment failure distinct from generic server errors.
var ErrNoSupportUsers = errors.New("no support users available for assignment")

// AssignmentService selects support staff for new tickets, balancing by
// active-ticket load.
type AssignmentService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	intn    func(n int) int
}

// AssignmentDependencies bundles repositories and the random source. Intn
// is injected so tests can pin tie-break outcomes; nil defaults to
// math/rand.
type AssignmentDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Intn       func(n int) int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	intn := deps.Intn
	if intn == nil {
		intn = rand.Intn
	}
	return &AssignmentService{
		users:   deps.UserRepo,
		tickets: deps.TicketRepo,
		intn:    intn,
	}
}

// SelectAssignee picks one SUPPORT user for a new ticket: the load of every
// support user is recomputed from current ticket state, and a uniformly
// random member of the minimum-load set is returned. Loads are read without
// locking; concurrent creations may transiently skew the balance, which is
// accepted.
func (s *AssignmentService) SelectAssignee(ctx context.Context) (string, error) {
	pool, err := s.users.ListByRole(ctx, domain.RoleSupport)
	if err != nil {
		return "", err
	}
	if len(pool) == 0 {
		return "", ErrNoSupportUsers
	}

	ids := make([]string, 0, len(pool))
	for _, user := range pool {
		ids = append(ids, user.ID)
	}
	counts, err := s.tickets.ActiveCountsByAssignee(ctx, ids)
	if err != nil {
		return "", err
	}

	minLoad := counts[ids[0]]
	for _, id := range ids[1:] {
		if counts[id] < minLoad {
			minLoad = counts[id]
		}
	}

	leastLoaded := make([]string, 0, len(ids))
	for _, id := range ids {
		if counts[id] == minLoad {
			leastLoaded = append(leastLoaded, id)
		}
	}

	return leastLoaded[s.intn(len(leastLoaded))], nil
}

// SupportLoad pairs a support user with their current active-ticket count.
type SupportLoad struct {
	User          domain.User
	ActiveTickets int
}

// ListSupportLoad returns every SUPPORT user with their active load, for
// the admin assignment pick list.
func (s *AssignmentService) ListSupportLoad(ctx context.Context) ([]SupportLoad, error) {
	pool, err := s.users.ListByRole(ctx, domain.RoleSupport)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pool))
	for _, user := range pool {
		ids = append(ids, user.ID)
	}
	counts, err := s.tickets.ActiveCountsByAssignee(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]SupportLoad, 0, len(pool))
	for _, user := range pool {
		result = append(result, SupportLoad{User: user, ActiveTickets: counts[user.ID]})
	}
	return result, nil
}

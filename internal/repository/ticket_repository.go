package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketListFilter scopes ticket listing to a role's view.
type TicketListFilter struct {
	CustomerUserID *string
	AssigneeUserID *string
}

// TicketUpdate carries one atomic ticket mutation: the merged scalar row
// plus relationship additions and removals. Everything applies in a single
// transaction or not at all.
type TicketUpdate struct {
	Ticket               *domain.Ticket
	DocumentsToAdd       []string
	DocumentsToRemove    []string
	SupportUsersToAdd    []string
	SupportUsersToRemove []string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, documentIDs, supportUserIDs []string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, update TicketUpdate) error
	Delete(ctx context.Context, id string) error
	ActiveCountsByAssignee(ctx context.Context, userIDs []string) (map[string]int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_user_id, customer_name, company_name, company_address,
               meet_date, meet_time, status, rescheduled_date, rescheduled_time, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, documentIDs, supportUserIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (customer_user_id, customer_name, company_name, company_address, meet_date, meet_time, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.CustomerUserID,
		ticket.CustomerName,
		ticket.CompanyName,
		ticket.CompanyAddress,
		ticket.MeetDate,
		ticket.MeetTime,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if err := addDocumentLinks(ctx, tx, ticket.ID, documentIDs); err != nil {
		return err
	}
	if err := addAssignmentLinks(ctx, tx, ticket.ID, supportUserIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	if err := r.expandRelations(ctx, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}

	switch {
	case filter.CustomerUserID != nil:
		args = append(args, *filter.CustomerUserID)
		query += ` WHERE customer_user_id=$1`
	case filter.AssigneeUserID != nil:
		args = append(args, *filter.AssigneeUserID)
		query += ` WHERE id IN (SELECT ticket_id FROM ticket_assignments WHERE user_id=$1)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if err := r.expandRelations(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *ticketRepository) Update(ctx context.Context, update TicketUpdate) error {
	ticket := update.Ticket

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Removals first so that add-after-remove of the same id lands present.
	if len(update.DocumentsToRemove) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM ticket_documents WHERE ticket_id=$1 AND document_id = ANY($2)`,
			ticket.ID, update.DocumentsToRemove); err != nil {
			return err
		}
	}
	if err := addDocumentLinks(ctx, tx, ticket.ID, update.DocumentsToAdd); err != nil {
		return err
	}
	if len(update.SupportUsersToRemove) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM ticket_assignments WHERE ticket_id=$1 AND user_id = ANY($2)`,
			ticket.ID, update.SupportUsersToRemove); err != nil {
			return err
		}
	}
	if err := addAssignmentLinks(ctx, tx, ticket.ID, update.SupportUsersToAdd); err != nil {
		return err
	}

	const query = `
        UPDATE tickets SET customer_name=$1, company_name=$2, company_address=$3, meet_date=$4, meet_time=$5,
            status=$6, rescheduled_date=$7, rescheduled_time=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := tx.Exec(ctx, query,
		ticket.CustomerName,
		ticket.CompanyName,
		ticket.CompanyAddress,
		ticket.MeetDate,
		ticket.MeetTime,
		ticket.Status,
		ticket.RescheduledDate,
		ticket.RescheduledTime,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_documents WHERE ticket_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_assignments WHERE ticket_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

// ActiveCountsByAssignee returns, for each given user id, the number of
// assigned tickets in OPEN or RESCHEDULED status. Users without active
// tickets are present with a zero count.
func (r *ticketRepository) ActiveCountsByAssignee(ctx context.Context, userIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(userIDs))
	for _, id := range userIDs {
		counts[id] = 0
	}
	if len(userIDs) == 0 {
		return counts, nil
	}

	const query = `
        SELECT ta.user_id, COUNT(*)
        FROM ticket_assignments ta
        JOIN tickets t ON t.id = ta.ticket_id
        WHERE ta.user_id = ANY($1) AND t.status IN ('OPEN','RESCHEDULED')
        GROUP BY ta.user_id`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) expandRelations(ctx context.Context, ticket *domain.Ticket) error {
	const docQuery = `
        SELECT d.id, d.title, d.file_name, d.storage_key, d.mime_type, d.size_bytes, d.created_at
        FROM documents d
        JOIN ticket_documents td ON td.document_id = d.id
        WHERE td.ticket_id=$1
        ORDER BY d.created_at`
	docRows, err := r.pool.Query(ctx, docQuery, ticket.ID)
	if err != nil {
		return err
	}
	docs, err := scanDocuments(docRows)
	docRows.Close()
	if err != nil {
		return err
	}
	ticket.Documents = docs

	const userQuery = `
        SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role, u.created_at, u.updated_at
        FROM users u
        JOIN ticket_assignments ta ON ta.user_id = u.id
        WHERE ta.ticket_id=$1
        ORDER BY u.created_at`
	userRows, err := r.pool.Query(ctx, userQuery, ticket.ID)
	if err != nil {
		return err
	}
	users, err := scanUsers(userRows)
	userRows.Close()
	if err != nil {
		return err
	}
	ticket.SupportUsers = users
	return nil
}

func addDocumentLinks(ctx context.Context, tx pgx.Tx, ticketID string, documentIDs []string) error {
	for _, docID := range documentIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_documents (ticket_id, document_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			ticketID, docID); err != nil {
			return err
		}
	}
	return nil
}

func addAssignmentLinks(ctx context.Context, tx pgx.Tx, ticketID string, userIDs []string) error {
	for _, userID := range userIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_assignments (ticket_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			ticketID, userID); err != nil {
			return err
		}
	}
	return nil
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.CustomerUserID,
		&t.CustomerName,
		&t.CompanyName,
		&t.CompanyAddress,
		&t.MeetDate,
		&t.MeetTime,
		&t.Status,
		&t.RescheduledDate,
		&t.RescheduledTime,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// DocumentRepository persists instruction-document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

type documentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs repository.
func NewDocumentRepository(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	const query = `
        INSERT INTO documents (title, file_name, storage_key, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		doc.Title,
		doc.FileName,
		doc.StorageKey,
		doc.MimeType,
		doc.SizeBytes,
	).Scan(&doc.ID, &doc.CreatedAt)
}

func (r *documentRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return []domain.Document{}, nil
	}
	const query = `
        SELECT id, title, file_name, storage_key, mime_type, size_bytes, created_at
        FROM documents WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (r *documentRepository) List(ctx context.Context) ([]domain.Document, error) {
	const query = `
        SELECT id, title, file_name, storage_key, mime_type, size_bytes, created_at
        FROM documents ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows pgx.Rows) ([]domain.Document, error) {
	var result []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.FileName,
			&doc.StorageKey,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/papervault/internal/common"
	"github.com/dmitrijs2005/papervault/internal/dbx"
	"github.com/dmitrijs2005/papervault/internal/server/models"
)

const documentColumns = `id, owner_id, storage_key, original_name, mime_type, byte_size,
	category, status, extracted_text, metadata, vendor_name, amount, due_date,
	is_offline, is_paid, created_at`

// PostgresRepository is a Repository backed by PostgreSQL.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, storage_key, original_name, mime_type,
			byte_size, category, status, extracted_text, metadata, vendor_name,
			amount, due_date, is_offline, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		doc.ID, doc.OwnerID, doc.StorageKey, doc.OriginalName, doc.MimeType,
		doc.ByteSize, doc.Category, doc.Status, doc.ExtractedText, metadata,
		doc.VendorName, doc.Amount, doc.DueDate, doc.IsOffline, doc.IsPaid,
		doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting document: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Complete(ctx context.Context, id string, c *Completion) error {
	metadata, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE documents
		SET status = $1, extracted_text = $2, category = $3, metadata = $4,
			vendor_name = $5, amount = $6, due_date = $7
		WHERE id = $8`,
		models.StatusCompleted, c.ExtractedText, c.Category, metadata,
		c.VendorName, c.Amount, c.DueDate, id)
	if err != nil {
		return fmt.Errorf("error completing document: %w", err)
	}

	return requireAffected(result)
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID string, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE owner_id = $1 AND id = $2`,
		ownerID, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return doc, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, category models.Category) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE owner_id = $1`
	args := []any{ownerID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryDocuments(ctx, query, args...)
}

func (r *PostgresRepository) Search(ctx context.Context, ownerID string, q string) ([]*models.Document, error) {
	pattern := "%" + q + "%"
	return r.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1
			AND (original_name ILIKE $2 OR extracted_text ILIKE $2 OR vendor_name ILIKE $2)
		ORDER BY created_at DESC`,
		ownerID, pattern)
}

func (r *PostgresRepository) ListDue(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return r.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND category = $2 AND is_paid = FALSE
			AND due_date IS NOT NULL AND due_date <= now() + interval '7 days'
		ORDER BY due_date ASC`,
		ownerID, models.CategoryInvoice)
}

func (r *PostgresRepository) ListPending(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return r.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC`,
		ownerID, models.StatusProcessing)
}

func (r *PostgresRepository) ListOffline(ctx context.Context, ownerID string) ([]*models.Document, error) {
	return r.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE owner_id = $1 AND is_offline = TRUE
		ORDER BY created_at DESC`,
		ownerID)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID string, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}

	return requireAffected(result)
}

func (r *PostgresRepository) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var metadata []byte

	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.StorageKey, &doc.OriginalName,
		&doc.MimeType, &doc.ByteSize, &doc.Category, &doc.Status,
		&doc.ExtractedText, &metadata, &doc.VendorName, &doc.Amount,
		&doc.DueDate, &doc.IsOffline, &doc.IsPaid, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("error decoding metadata: %w", err)
		}
	}

	return &doc, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error encoding metadata: %w", err)
	}
	return b, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

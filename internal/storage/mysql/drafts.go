package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"airnest/internal/domain"
)

// draftPayload is the JSON document kept in drafts.payload.
type draftPayload struct {
	Fields     domain.DraftFields `json:"fields"`
	Images     []domain.Image     `json:"images"`
	Completion domain.Completion  `json:"completion"`
}

func (r *Repo) SaveDraft(ctx context.Context, d *domain.Draft) error {
	return saveDraft(ctx, r.db, d)
}

func saveDraft(ctx context.Context, ex execer, d *domain.Draft) error {
	payload, err := json.Marshal(draftPayload{Fields: d.Fields, Images: d.Images, Completion: d.Completion})
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, upsertDraftSQL,
		d.ID,
		d.UserID,
		d.Status,
		string(payload),
		valStr(d.PropertyID),
		d.CreatedAt.UTC(),
		d.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repo) GetDraft(ctx context.Context, id string) (*domain.Draft, error) {
	var d domain.Draft
	var payload []byte
	var propertyID sql.NullString
	err := r.db.QueryRowContext(ctx, getDraftSQL, id).Scan(
		&d.ID, &d.UserID, &d.Status, &payload, &propertyID, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p draftPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	d.Fields, d.Images, d.Completion = p.Fields, p.Images, p.Completion
	if propertyID.Valid {
		s := propertyID.String
		d.PropertyID = &s
	}
	return &d, nil
}

// PublishDraft writes the new property and the published draft in one
// transaction.
func (r *Repo) PublishDraft(ctx context.Context, d *domain.Draft, p domain.Property) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertProperty(ctx, tx, p); err != nil {
		return fmt.Errorf("insert property: %w", err)
	}
	if err := saveDraft(ctx, tx, d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return tx.Commit()
}

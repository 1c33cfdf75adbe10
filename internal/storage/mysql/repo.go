package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"airnest/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// execer lets the property upsert run inside or outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repo) UpsertProperty(ctx context.Context, p domain.Property) error {
	return upsertProperty(ctx, r.db, p)
}

func upsertProperty(ctx context.Context, ex execer, p domain.Property) error {
	imgs, _ := json.Marshal(p.Images)
	_, err := ex.ExecContext(ctx, upsertPropertySQL,
		p.ID,
		p.LandlordID,
		p.Title,
		p.Description,
		p.PricePerNight,
		p.Status,
		p.Category,
		p.PlaceType,
		p.Bedrooms,
		p.Bathrooms,
		p.Guests,
		p.Beds,
		p.Country,
		p.State,
		p.City,
		p.Address,
		p.PostalCode,
		p.TimeZone,
		valJSON(imgs),
		p.CreatedAt,
	)
	return err
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

// SearchProperties returns published properties, newest first. Availability
// is not evaluated here.
func (r *Repo) SearchProperties(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	var b strings.Builder
	b.WriteString("SELECT" + propertyColumns + "\nFROM properties p\nWHERE p.status = 'published'")
	var args []any
	if loc := strings.TrimSpace(f.Location); loc != "" {
		like := "%" + escapeLike(loc) + "%"
		b.WriteString(" AND (p.city LIKE ? OR p.address LIKE ? OR p.country LIKE ?)")
		args = append(args, like, like, like)
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		b.WriteString(" AND LOWER(p.category) = LOWER(?)")
		args = append(args, cat)
	}
	if f.Guests != nil {
		b.WriteString(" AND p.guests >= ?")
		args = append(args, *f.Guests)
	}
	b.WriteString("\nORDER BY p.created_at DESC, p.id")

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func (r *Repo) ListPublishedIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listPublishedIDsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repo) UpdateProperty(ctx context.Context, id string, fn func(*domain.Property) error) (domain.Property, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Property{}, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanProperty(tx.QueryRowContext(ctx, getPropertyForUpdateSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Property{}, err
	}
	if err := fn(&p); err != nil {
		return domain.Property{}, err
	}
	if err := upsertProperty(ctx, tx, p); err != nil {
		return domain.Property{}, err
	}
	return p, tx.Commit()
}

func (r *Repo) ListByLandlord(ctx context.Context, landlordID string) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listLandlordPropertiesSQL, landlordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func (r *Repo) ToggleWishlist(ctx context.Context, userID, propertyID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, deleteWishlistSQL, userID, propertyID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	added := n == 0
	if added {
		if _, err := tx.ExecContext(ctx, insertWishlistSQL, userID, propertyID); err != nil {
			return false, err
		}
	}
	return added, tx.Commit()
}

func (r *Repo) ListWishlist(ctx context.Context, userID string) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listWishlistSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProperties(rows)
}

func collectProperties(rows *sql.Rows) ([]domain.Property, error) {
	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProperty(s scanner) (domain.Property, error) {
	var p domain.Property
	var imagesJSON []byte
	if err := s.Scan(
		&p.ID, &p.LandlordID, &p.Title, &p.Description, &p.PricePerNight, &p.Status,
		&p.Category, &p.PlaceType, &p.Bedrooms, &p.Bathrooms, &p.Guests, &p.Beds,
		&p.Country, &p.State, &p.City, &p.Address, &p.PostalCode, &p.TimeZone,
		&imagesJSON, &p.CreatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	p.Images = decodeImages(imagesJSON, p.ID)
	return p, nil
}

// decodeImages never returns nil. A corrupt column is logged and read as no
// images so one bad row does not fail a whole listing.
func decodeImages(raw []byte, propertyID string) []domain.Image {
	if len(raw) == 0 {
		return []domain.Image{}
	}
	var imgs []domain.Image
	if err := json.Unmarshal(raw, &imgs); err != nil {
		log.Warn().Err(err).Str("property", propertyID).Msg("corrupt images json")
		return []domain.Image{}
	}
	if imgs == nil {
		return []domain.Image{}
	}
	return imgs
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

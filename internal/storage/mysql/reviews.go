package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	drv "github.com/go-sql-driver/mysql"

	"airnest/internal/domain"
)

// MySQL error number for a unique key violation.
const errDupEntry = 1062

func (r *Repo) ListReviews(ctx context.Context, propertyID string, limit, offset int) ([]domain.Review, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, countReviewsSQL, propertyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, listReviewsSQL, propertyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.attachTags(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *Repo) HasReview(ctx context.Context, propertyID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, hasReviewSQL, propertyID, userID).Scan(&ok)
	return ok, err
}

// CreateReview inserts rv and its tags. The unique (property, user) key
// backs up the service's duplicate check when two requests race.
func (r *Repo) CreateReview(ctx context.Context, rv domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.PropertyID,
		rv.UserID,
		valStr(rv.ReservationID),
		rv.Rating,
		rv.Title,
		rv.Content,
		rv.IsVerified,
		rv.IsHidden,
		rv.CreatedAt.UTC(),
		rv.UpdatedAt.UTC(),
	)
	var me *drv.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry {
		return domain.ErrAlreadyReviewed
	}
	if err != nil {
		return err
	}
	if err := insertTags(ctx, tx, rv); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, err
	}
	one := []domain.Review{rv}
	if err := r.attachTags(ctx, one); err != nil {
		return domain.Review{}, err
	}
	return one[0], nil
}

// UpdateReview rewrites the editable fields of rv and replaces its tags.
func (r *Repo) UpdateReview(ctx context.Context, rv domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// mysql counts changed rows, so an identical rewrite would look missing
	var ok bool
	if err := tx.QueryRowContext(ctx, reviewExistsSQL, rv.ID).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, updateReviewSQL,
		rv.Rating, rv.Title, rv.Content, rv.UpdatedAt.UTC(), rv.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, clearReviewTagsSQL, rv.ID); err != nil {
		return err
	}
	if err := insertTags(ctx, tx, rv); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteReviewSQL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListRatings(ctx context.Context, propertyID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, listRatingsSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) ListReviewTags(ctx context.Context) ([]domain.ReviewTag, error) {
	rows, err := r.db.QueryContext(ctx, listReviewTagsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.ReviewTag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) CountTags(ctx context.Context, propertyID string, limit int) ([]domain.TagCount, error) {
	rows, err := r.db.QueryContext(ctx, countTagsSQL, propertyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.TagCount{}
	for rows.Next() {
		var tc domain.TagCount
		t := &tc.Tag
		if err := rows.Scan(&t.Key, &t.NameEN, &t.NameZH, &t.NameFR, &t.Color, &t.Icon, &t.Category, &t.Order, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func insertTags(ctx context.Context, tx *sql.Tx, rv domain.Review) error {
	for _, t := range rv.Tags {
		if _, err := tx.ExecContext(ctx, insertReviewTagSQL, rv.ID, t.Key); err != nil {
			return fmt.Errorf("tag %s: %w", t.Key, err)
		}
	}
	return nil
}

// attachTags loads the tags of every review in one query.
func (r *Repo) attachTags(ctx context.Context, reviews []domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(reviews)), ",")
	args := make([]any, len(reviews))
	idx := make(map[string]int, len(reviews))
	for i := range reviews {
		args[i] = reviews[i].ID
		idx[reviews[i].ID] = i
		reviews[i].Tags = []domain.ReviewTag{}
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(reviewTagsForSQL, marks), args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var reviewID string
		var t domain.ReviewTag
		if err := rows.Scan(&reviewID, &t.Key, &t.NameEN, &t.NameZH, &t.NameFR, &t.Color, &t.Icon, &t.Category, &t.Order); err != nil {
			return err
		}
		i := idx[reviewID]
		reviews[i].Tags = append(reviews[i].Tags, t)
	}
	return rows.Err()
}

func scanTag(s scanner) (domain.ReviewTag, error) {
	var t domain.ReviewTag
	err := s.Scan(&t.Key, &t.NameEN, &t.NameZH, &t.NameFR, &t.Color, &t.Icon, &t.Category, &t.Order)
	return t, err
}

func scanReview(s scanner) (domain.Review, error) {
	var rv domain.Review
	var reservationID sql.NullString
	if err := s.Scan(
		&rv.ID, &rv.PropertyID, &rv.UserID, &reservationID, &rv.Rating,
		&rv.Title, &rv.Content, &rv.IsVerified, &rv.IsHidden,
		&rv.CreatedAt, &rv.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	if reservationID.Valid {
		id := reservationID.String
		rv.ReservationID = &id
	}
	return rv, nil
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"airnest/internal/domain"
)

func (r *Repo) ListForProperty(ctx context.Context, propertyID string) ([]domain.Reservation, error) {
	return listReservations(ctx, r.db, propertyID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listReservations(ctx context.Context, q querier, propertyID string) ([]domain.Reservation, error) {
	rows, err := q.QueryContext(ctx, listReservationsSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListForProperties loads the reservations of many properties in one query,
// keyed by property id.
func (r *Repo) ListForProperties(ctx context.Context, propertyIDs []string) (map[string][]domain.Reservation, error) {
	out := make(map[string][]domain.Reservation, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return out, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(propertyIDs)), ",")
	args := make([]any, len(propertyIDs))
	for i, id := range propertyIDs {
		args[i] = id
	}
	q := fmt.Sprintf("SELECT %s FROM reservations r WHERE r.property_id IN (%s) ORDER BY r.property_id, r.check_in", reservationColumns, marks)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out[res.PropertyID] = append(out[res.PropertyID], res)
	}
	return out, rows.Err()
}

func (r *Repo) ListForUser(ctx context.Context, userID string) ([]domain.UserReservation, error) {
	rows, err := r.db.QueryContext(ctx, listUserReservationsSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.UserReservation{}
	for rows.Next() {
		var ur domain.UserReservation
		var imagesJSON []byte
		res := &ur.Reservation
		if err := rows.Scan(
			&res.ID, &res.PropertyID, &res.UserID, &res.CheckIn, &res.CheckOut,
			&res.Guests, &res.TotalPrice, &res.CreatedAt,
			&ur.PropertyTitle, &ur.PropertyTimeZone, &imagesJSON,
		); err != nil {
			return nil, err
		}
		ur.PropertyImages = decodeImages(imagesJSON, res.PropertyID)
		out = append(out, ur)
	}
	return out, rows.Err()
}

func (r *Repo) LatestCompletedStay(ctx context.Context, propertyID, userID string, before time.Time) (domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, latestCompletedStaySQL, propertyID, userID, before.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, err
}

// CreateReservation locks the property row, hands the current reservations
// to guard and inserts res only if guard accepts. Concurrent writers for the
// same property queue on the row lock, so each guard sees every committed
// reservation. READ COMMITTED makes the reload after the lock see rows
// committed while waiting.
func (r *Repo) CreateReservation(ctx context.Context, res domain.Reservation, guard domain.ReserveGuard) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	if err := tx.QueryRowContext(ctx, lockPropertySQL, res.PropertyID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock property: %w", err)
	}

	existing, err := listReservations(ctx, tx, res.PropertyID)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	if err := guard(existing); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, insertReservationSQL,
		res.ID,
		res.PropertyID,
		res.UserID,
		res.CheckIn.UTC(),
		res.CheckOut.UTC(),
		res.Guests,
		res.TotalPrice,
		res.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return tx.Commit()
}

func scanReservation(s scanner) (domain.Reservation, error) {
	var res domain.Reservation
	err := s.Scan(&res.ID, &res.PropertyID, &res.UserID, &res.CheckIn, &res.CheckOut, &res.Guests, &res.TotalPrice, &res.CreatedAt)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.CheckIn = res.CheckIn.UTC()
	res.CheckOut = res.CheckOut.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	return res, nil
}

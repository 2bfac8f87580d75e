package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/singhkkrish/traceit/internal/model"
)

// FoundItemFilter narrows a found item listing. Zero fields are ignored.
type FoundItemFilter struct {
	Status   string
	Category string
	Query    string
	FoundBy  string
}

// foundItemSelect is the default projection. It must never select
// security_answer; only GetFoundItemSecret reads that column.
const foundItemSelect = `SELECT id, item_name, category, location_found, date_found, phone, security_question,
        photos, status, found_by, created_at, updated_at, deleted_at
 FROM found_items`

func scanFoundItem(row interface{ Scan(...any) error }) (*model.FoundItem, error) {
	f := &model.FoundItem{}
	var photos string
	err := row.Scan(&f.ID, &f.ItemName, &f.Category, &f.LocationFound, &f.DateFound, &f.Phone, &f.SecurityQuestion,
		&photos, &f.Status, &f.FoundBy, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt)
	if err != nil {
		return nil, err
	}
	if f.Photos, err = decodePhotos(photos); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateFoundItem stores a new found item report together with its security
// answer. The answer is not part of the returned projection.
func CreateFoundItem(ctx context.Context, db *sql.DB, item *model.FoundItem, securityAnswer string) (*model.FoundItem, error) {
	photos, err := encodePhotos(item.Photos)
	if err != nil {
		return nil, fmt.Errorf("creating found item: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO found_items (id, item_name, category, location_found, date_found, phone, security_question,
		                          security_answer, photos, status, found_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.ItemName, item.Category, item.LocationFound, item.DateFound, item.Phone, item.SecurityQuestion,
		securityAnswer, photos, model.FoundStatusFound, item.FoundBy, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating found item: %w", err)
	}

	return GetFoundItem(ctx, db, id)
}

// GetFoundItem returns the public projection of a found item by ID.
func GetFoundItem(ctx context.Context, db *sql.DB, id string) (*model.FoundItem, error) {
	f, err := scanFoundItem(db.QueryRowContext(ctx,
		foundItemSelect+` WHERE id = ? AND deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting found item: %w", err)
	}
	return f, nil
}

// GetFoundItemSecret returns the stored answer of a found item together with
// the contact details released on a successful verification.
func GetFoundItemSecret(ctx context.Context, db *sql.DB, id string) (*model.FoundItemSecret, error) {
	s := &model.FoundItemSecret{}
	err := db.QueryRowContext(ctx,
		`SELECT f.id, f.security_answer, f.phone, u.name, u.email, u.phone
		 FROM found_items f
		 JOIN users u ON u.id = f.found_by
		 WHERE f.id = ? AND f.deleted_at IS NULL`, id,
	).Scan(&s.ItemID, &s.Answer, &s.ItemPhone, &s.FinderName, &s.FinderEmail, &s.FinderPhone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting found item secret: %w", err)
	}
	return s, nil
}

// ListFoundItems returns non-deleted found items matching f, newest first.
func ListFoundItems(ctx context.Context, db *sql.DB, f FoundItemFilter) ([]model.FoundItem, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.FoundBy != "" {
		where = append(where, "found_by = ?")
		args = append(args, f.FoundBy)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := likePattern(q)
		where = append(where, `(item_name LIKE ? ESCAPE '\' OR location_found LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}

	rows, err := db.QueryContext(ctx,
		foundItemSelect+` WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing found items: %w", err)
	}
	defer rows.Close()

	var items []model.FoundItem
	for rows.Next() {
		item, err := scanFoundItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning found item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateFoundItem writes the mutable fields of item. A non-empty
// securityAnswer replaces the stored answer.
func UpdateFoundItem(ctx context.Context, db *sql.DB, item *model.FoundItem, securityAnswer string) error {
	photos, err := encodePhotos(item.Photos)
	if err != nil {
		return fmt.Errorf("updating found item: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE found_items SET item_name = ?, category = ?, location_found = ?, date_found = ?, phone = ?,
		                        security_question = ?,
		                        security_answer = CASE WHEN ? = '' THEN security_answer ELSE ? END,
		                        photos = ?, status = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		item.ItemName, item.Category, item.LocationFound, item.DateFound, item.Phone,
		item.SecurityQuestion,
		securityAnswer, securityAnswer,
		photos, item.Status, time.Now().UTC(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating found item: %w", err)
	}
	return nil
}

// SetFoundItemStatus changes the status of a found item.
func SetFoundItemStatus(ctx context.Context, db *sql.DB, id, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE found_items SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting found item status: %w", err)
	}
	return nil
}

// DeleteFoundItem soft-deletes a found item.
func DeleteFoundItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE found_items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting found item: %w", err)
	}
	return nil
}

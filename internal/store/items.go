package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/singhkkrish/traceit/internal/model"
)

// ItemFilter narrows a lost item listing. Zero fields are ignored.
type ItemFilter struct {
	Status     string
	Category   string
	Query      string
	ReportedBy string
}

const itemSelect = `SELECT i.id, i.item_name, i.category, i.description, i.location_lost, i.date_lost,
        i.phone, i.photos, i.status, i.created_at, i.updated_at, i.deleted_at,
        u.id, u.name, u.email, u.phone
 FROM items i
 JOIN users u ON u.id = i.reported_by`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{ReportedBy: &model.UserSummary{}}
	var photos string
	err := row.Scan(&item.ID, &item.ItemName, &item.Category, &item.Description, &item.LocationLost, &item.DateLost,
		&item.Phone, &photos, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		&item.ReportedBy.ID, &item.ReportedBy.Name, &item.ReportedBy.Email, &item.ReportedBy.Phone)
	if err != nil {
		return nil, err
	}
	if item.Photos, err = decodePhotos(photos); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem stores a new lost item report for item.ReportedBy.ID. The ID,
// status and timestamps are assigned here.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	photos, err := encodePhotos(item.Photos)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO items (id, item_name, category, description, location_lost, date_lost, phone, photos,
		                    status, reported_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.ItemName, item.Category, item.Description, item.LocationLost, item.DateLost, item.Phone, photos,
		model.ItemStatusLost, item.ReportedBy.ID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns a lost item by ID. Deleted items are not returned.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		itemSelect+` WHERE i.id = ? AND i.deleted_at IS NULL`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted lost items matching f, newest first.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	where := []string{"i.deleted_at IS NULL"}
	var args []any
	if f.Status != "" {
		where = append(where, "i.status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "i.category = ?")
		args = append(args, f.Category)
	}
	if f.ReportedBy != "" {
		where = append(where, "i.reported_by = ?")
		args = append(args, f.ReportedBy)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := likePattern(q)
		where = append(where, `(i.item_name LIKE ? ESCAPE '\' OR i.location_lost LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}

	rows, err := db.QueryContext(ctx,
		itemSelect+` WHERE `+strings.Join(where, " AND ")+` ORDER BY i.created_at DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem writes the mutable fields of item.
func UpdateItem(ctx context.Context, db *sql.DB, item *model.Item) error {
	photos, err := encodePhotos(item.Photos)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET item_name = ?, category = ?, description = ?, location_lost = ?, date_lost = ?,
		                  phone = ?, photos = ?, status = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		item.ItemName, item.Category, item.Description, item.LocationLost, item.DateLost,
		item.Phone, photos, item.Status, time.Now().UTC(), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes a lost item.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

func encodePhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("encoding photos: %w", err)
	}
	return string(data), nil
}

func decodePhotos(s string) ([]string, error) {
	photos := []string{}
	if s == "" {
		return photos, nil
	}
	if err := json.Unmarshal([]byte(s), &photos); err != nil {
		return nil, fmt.Errorf("decoding photos: %w", err)
	}
	return photos, nil
}

// likePattern builds a LIKE pattern matching q anywhere, escaping wildcards.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

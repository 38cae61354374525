package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/takumidev/pricewatch/internal/models"
)

// ErrItemNotFound is returned when an item id or URL matches no row.
var ErrItemNotFound = errors.New("item not found")

// ErrDuplicateURL is returned when inserting an item whose URL is
// already tracked.
var ErrDuplicateURL = errors.New("item url already tracked")

const (
	EventPriceChanged = "PRICE_CHANGED"
	EventStockChanged = "STOCK_CHANGED"
	EventItemAdded    = "ITEM_ADDED"
)

// ItemRepository handles item and price history persistence. Outbox
// events it writes target stream; an empty stream falls back to
// DefaultStream.
type ItemRepository struct {
	db     *DB
	outbox *OutboxRepository
	stream string
}

func NewItemRepository(db *DB, stream string) *ItemRepository {
	if stream == "" {
		stream = DefaultStream
	}
	return &ItemRepository{db: db, outbox: NewOutboxRepository(db), stream: stream}
}

const itemColumns = `id, url, name, price, image_url, source, source_name, stock_status, note, created_at, updated_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(
		&item.ID, &item.URL, &item.Name, &item.Price, &item.ImageURL,
		&item.Source, &item.SourceName, &item.StockStatus, &item.Note,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Insert persists a new item and records an ITEM_ADDED outbox event in
// the same transaction. The item's initial price, if any, becomes the
// first price history row.
func (r *ItemRepository) Insert(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO items (
				id, url, name, price, image_url, source,
				source_name, stock_status, note, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (url) DO NOTHING`

		tag, err := tx.Exec(ctx, query,
			item.ID, item.URL, item.Name, item.Price, item.ImageURL,
			item.Source, item.SourceName, item.StockStatus, item.Note,
			item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrDuplicateURL
		}

		if item.Price != nil {
			if err := insertPricePoint(ctx, tx, item.ID, *item.Price, item.CreatedAt); err != nil {
				return err
			}
		}

		return r.insertItemEvent(ctx, tx, item, EventItemAdded, nil)
	})
}

// Get returns a single item by id, ErrItemNotFound when absent.
func (r *ItemRepository) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// List returns all tracked items, oldest first.
func (r *ItemRepository) List(ctx context.Context) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// Delete removes an item and, via cascade, its price history.
func (r *ItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// History returns an item's recorded price points, newest first.
func (r *ItemRepository) History(ctx context.Context, itemID uuid.UUID) ([]*models.PricePoint, error) {
	query := `
		SELECT id, item_id, price, recorded_at
		FROM price_history
		WHERE item_id = $1
		ORDER BY recorded_at DESC`

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []*models.PricePoint
	for rows.Next() {
		p := &models.PricePoint{}
		if err := rows.Scan(&p.ID, &p.ItemID, &p.Price, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return points, nil
}

// ApplyScrape folds a fresh scrape result into a stored item. Price
// history grows only when a concrete price was observed and differs
// from the stored one; failed scrapes keep the previous price so a
// bot wall never looks like a price drop. Change events go through
// the outbox in the same transaction as the row update.
func (r *ItemRepository) ApplyScrape(ctx context.Context, item *models.Item, result models.ScrapeResult) error {
	priceChanged := result.Price != nil &&
		(item.Price == nil || *item.Price != *result.Price)
	stockChanged := result.StockStatus != item.StockStatus

	previousPrice := item.Price
	previousStock := item.StockStatus

	if result.Name != "" && result.Name != models.NameFetchFailed {
		item.Name = result.Name
	}
	if result.Price != nil {
		item.Price = result.Price
	}
	if result.ImageURL != "" {
		item.ImageURL = result.ImageURL
	}
	item.StockStatus = result.StockStatus
	item.Note = result.Note
	item.UpdatedAt = time.Now()

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE items SET
				name = $2, price = $3, image_url = $4,
				stock_status = $5, note = $6, updated_at = $7
			WHERE id = $1`

		tag, err := tx.Exec(ctx, query,
			item.ID, item.Name, item.Price, item.ImageURL,
			item.StockStatus, item.Note, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrItemNotFound
		}

		if priceChanged {
			if err := insertPricePoint(ctx, tx, item.ID, *result.Price, item.UpdatedAt); err != nil {
				return err
			}
			payload := map[string]interface{}{
				"old_price": previousPrice,
				"new_price": *result.Price,
			}
			if err := r.insertItemEvent(ctx, tx, item, EventPriceChanged, payload); err != nil {
				return err
			}
		}

		if stockChanged {
			payload := map[string]interface{}{
				"old_status": previousStock,
				"new_status": result.StockStatus,
			}
			if err := r.insertItemEvent(ctx, tx, item, EventStockChanged, payload); err != nil {
				return err
			}
		}

		return nil
	})
}

func insertPricePoint(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, price int, at time.Time) error {
	query := `
		INSERT INTO price_history (id, item_id, price, recorded_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, query, uuid.New(), itemID, price, at); err != nil {
		return fmt.Errorf("failed to insert price point: %w", err)
	}
	return nil
}

func (r *ItemRepository) insertItemEvent(ctx context.Context, tx pgx.Tx, item *models.Item, eventType string, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"item_id": item.ID.String(),
		"url":     item.URL,
		"name":    item.Name,
		"source":  item.Source,
	}
	for k, v := range extra {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &OutboxEvent{
		AggregateType: "item",
		AggregateID:   item.ID.String(),
		EventType:     eventType,
		Payload:       data,
		TargetStream:  r.stream,
	}
	return r.outbox.InsertWithTx(ctx, tx, event)
}

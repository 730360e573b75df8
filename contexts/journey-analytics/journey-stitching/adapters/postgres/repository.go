package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"journeystitch/contexts/journey-analytics/journey-stitching/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxUpdateAttempts = 5

var errUpdateContention = errors.New("document update kept losing insert races")

// Repository stores every collection in one jsonb table keyed by
// (collection, doc_id). Update locks the row with SELECT ... FOR UPDATE.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates the document table when missing.
func (r *Repository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&documentModel{}); err != nil {
		return fmt.Errorf("migrate journey documents: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, collection string, id string) ([]byte, bool, error) {
	var row documentModel
	err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.Body, true, nil
}

func (r *Repository) MultiGet(ctx context.Context, collection string, ids []string) (map[string][]byte, error) {
	docs := make(map[string][]byte, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	var rows []documentModel
	if err := r.db.WithContext(ctx).
		Where("collection = ? AND doc_id IN ?", collection, ids).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		docs[row.DocID] = row.Body
	}
	return docs, nil
}

func (r *Repository) Put(ctx context.Context, collection string, id string, doc []byte) error {
	row := documentModel{
		Collection: collection,
		DocID:      id,
		Body:       doc,
		UpdatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
		}).
		Create(&row).
		Error
}

// Update retries when a concurrent writer inserts the same absent document
// first; the retry then finds and locks the committed row.
func (r *Repository) Update(ctx context.Context, collection string, id string, fn ports.UpdateFunc) ([]byte, error) {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		stored, err := r.updateOnce(ctx, collection, id, fn)
		if err == nil {
			return stored, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		r.logger.Debug("document insert race lost, retrying",
			"event", "journey_document_update_retry",
			"module", "journey-analytics/journey-stitching",
			"layer", "adapter",
			"collection", collection,
			"doc_id", id,
			"attempt", attempt,
		)
	}
	return nil, fmt.Errorf("update %s/%s: %w", collection, id, errUpdateContention)
}

func (r *Repository) updateOnce(ctx context.Context, collection string, id string, fn ports.UpdateFunc) ([]byte, error) {
	var stored []byte
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row documentModel
		found := true
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND doc_id = ?", collection, id).
			Take(&row).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
		} else if err != nil {
			return err
		}

		next, err := fn(row.Body, found)
		if errors.Is(err, ports.ErrSkipWrite) {
			stored = row.Body
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if found {
			if err := tx.Model(&documentModel{}).
				Where("collection = ? AND doc_id = ?", collection, id).
				Updates(map[string]any{"body": next, "updated_at": now}).
				Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&documentModel{
				Collection: collection,
				DocID:      id,
				Body:       next,
				UpdatedAt:  now,
			}).Error; err != nil {
				return err
			}
		}
		stored = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

type documentModel struct {
	Collection string    `gorm:"column:collection;primaryKey;size:255"`
	DocID      string    `gorm:"column:doc_id;primaryKey;size:512"`
	Body       []byte    `gorm:"column:body;type:jsonb;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (documentModel) TableName() string { return "journey_documents" }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

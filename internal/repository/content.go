package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/pkg/models"
)

const contentColumns = `c.id, c.title, c.item_type, c.genres, c.actors, c.keywords,
		c.average_rating, c.popularity_score, c.last_updated`

// ContentRepository reads catalog metadata from PostgreSQL. The catalog is
// owned elsewhere; nothing here writes to content_items.
type ContentRepository struct {
	db      Querier
	breaker *Breaker
	logger  *logrus.Logger
}

func NewContentRepository(db Querier, breaker *Breaker, logger *logrus.Logger) *ContentRepository {
	return &ContentRepository{
		db:      db,
		breaker: breaker,
		logger:  logger,
	}
}

// GetItem returns ErrNotFound when the catalog has no such item.
func (r *ContentRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items c WHERE c.id = $1`

	return guard(r.breaker, func() (*models.ContentItem, error) {
		var item models.ContentItem
		err := scanContentItem(r.db.QueryRow(ctx, query, itemID), &item)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get content item: %w", err)
		}
		return &item, nil
	})
}

// FindSimilarByGenreOverlap ranks items by the number of genres shared with
// itemID, then by stored popularity.
func (r *ContentRepository) FindSimilarByGenreOverlap(ctx context.Context, itemID uuid.UUID, minOverlap, limit int) ([]models.ContentItem, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content_items c
		JOIN content_items ref ON ref.id = $1
		CROSS JOIN LATERAL (
			SELECT COUNT(*) AS shared
			FROM unnest(c.genres) g
			WHERE g = ANY(ref.genres)
		) overlap
		WHERE c.id <> ref.id AND overlap.shared >= $2
		ORDER BY overlap.shared DESC, c.popularity_score DESC, c.id
		LIMIT $3`

	return r.queryItems(ctx, "similar by genre", query, itemID, minOverlap, limit)
}

// FindItemsByGenres returns items carrying any of the given genres.
func (r *ContentRepository) FindItemsByGenres(ctx context.Context, genres []string) ([]models.ContentItem, error) {
	if len(genres) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + contentColumns + `
		FROM content_items c
		WHERE c.genres && $1
		ORDER BY c.popularity_score DESC, c.id`

	return r.queryItems(ctx, "items by genres", query, genres)
}

// GetMostPopular returns items by stored popularity score, highest first.
func (r *ContentRepository) GetMostPopular(ctx context.Context, limit int) ([]models.ContentItem, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content_items c
		ORDER BY c.popularity_score DESC, c.id
		LIMIT $1`

	return r.queryItems(ctx, "most popular", query, limit)
}

func (r *ContentRepository) queryItems(ctx context.Context, what, query string, args ...interface{}) ([]models.ContentItem, error) {
	return guard(r.breaker, func() ([]models.ContentItem, error) {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", what, err)
		}
		defer rows.Close()

		var items []models.ContentItem
		for rows.Next() {
			var item models.ContentItem
			if err := scanContentItem(rows, &item); err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", what, err)
			}
			items = append(items, item)
		}

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", what, err)
		}

		return items, nil
	})
}

func scanContentItem(row pgx.Row, item *models.ContentItem) error {
	return row.Scan(
		&item.ID,
		&item.Title,
		&item.Type,
		&item.Genres,
		&item.Actors,
		&item.Keywords,
		&item.AverageRating,
		&item.PopularityScore,
		&item.LastUpdated,
	)
}

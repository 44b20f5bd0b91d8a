package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"milebot/internal/model"
)

// RatingStats aggregate reputation numbers for one user.
type RatingStats struct {
	AvgStars     float64 `json:"avg_stars"`
	RatingCount  int64   `json:"rating_count"`
	Recommends   int64   `json:"recommends"`
	MilesBought  int64   `json:"miles_bought"`
	MilesSold    int64   `json:"miles_sold"`
	Negotiations int64   `json:"negotiations"`
}

// RatingRepository rating repository interface
type RatingRepository interface {
	// Create draft rating
	Create(ctx context.Context, rating *model.Rating) error

	// Get rating by ID, nil when absent
	GetByID(ctx context.Context, id int64) (*model.Rating, error)

	// Flip confirmed on an unconfirmed rating, returns rows affected
	Confirm(ctx context.Context, id int64) (int64, error)

	// Average stars over confirmed ratings received by a user, count 0
	// when unrated
	AverageStars(ctx context.Context, userID int64) (avg float64, count int64, err error)

	// Lifetime aggregates for the stats card
	Stats(ctx context.Context, userID int64) (*RatingStats, error)

	// Aggregates limited to ratings confirmed since the given time
	StatsSince(ctx context.Context, userID int64, since time.Time) (*RatingStats, error)
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a rating repository
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Create(ctx context.Context, rating *model.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *ratingRepository) GetByID(ctx context.Context, id int64) (*model.Rating, error) {
	var rating model.Rating
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rating, nil
}

func (r *ratingRepository) Confirm(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Rating{}).
		Where("id = ? AND confirmed = ?", id, false).
		Update("confirmed", true)
	return res.RowsAffected, res.Error
}

func (r *ratingRepository) AverageStars(ctx context.Context, userID int64) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Select("COALESCE(AVG(stars), 0) AS avg, COUNT(*) AS count").
		Where("to_user_id = ? AND confirmed = ?", userID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

func (r *ratingRepository) Stats(ctx context.Context, userID int64) (*RatingStats, error) {
	return r.statsWhere(ctx, userID, nil)
}

func (r *ratingRepository) StatsSince(ctx context.Context, userID int64, since time.Time) (*RatingStats, error) {
	return r.statsWhere(ctx, userID, &since)
}

func (r *ratingRepository) statsWhere(ctx context.Context, userID int64, since *time.Time) (*RatingStats, error) {
	stats := &RatingStats{}

	ratings := r.db.WithContext(ctx).Model(&model.Rating{}).
		Where("to_user_id = ? AND confirmed = ?", userID, true)
	if since != nil {
		ratings = ratings.Where("updated_at >= ?", *since)
	}
	var ratingRow struct {
		Avg        float64
		Count      int64
		Recommends int64
	}
	err := ratings.
		Select("COALESCE(AVG(stars), 0) AS avg, COUNT(*) AS count, COALESCE(SUM(recommend), 0) AS recommends").
		Scan(&ratingRow).Error
	if err != nil {
		return nil, err
	}
	stats.AvgStars = ratingRow.Avg
	stats.RatingCount = ratingRow.Count
	stats.Recommends = ratingRow.Recommends

	history := r.db.WithContext(ctx).Model(&model.MileHistory{}).
		Where("user_id = ?", userID)
	if since != nil {
		history = history.Where("created_at >= ?", *since)
	}
	var historyRows []struct {
		Direction string
		Total     int64
		Count     int64
	}
	err = history.
		Select("direction, COALESCE(SUM(quantity), 0) AS total, COUNT(*) AS count").
		Group("direction").
		Scan(&historyRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range historyRows {
		switch row.Direction {
		case model.HistoryDirectionBought:
			stats.MilesBought = row.Total
		case model.HistoryDirectionSold:
			stats.MilesSold = row.Total
		}
		stats.Negotiations += row.Count
	}

	return stats, nil
}

// HistoryRepository mile ledger repository interface
type HistoryRepository interface {
	// Insert a ledger row, duplicate (proposal, user, direction) rows
	// are silently skipped
	Insert(ctx context.Context, entry *model.MileHistory) error
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a mile ledger repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Insert(ctx context.Context, entry *model.MileHistory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

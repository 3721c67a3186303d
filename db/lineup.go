package db

import (
	"context"
	"fmt"

	"github.com/amonks/bandcruise/data"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReplaceLineup swaps the stored lineup for the given bands.
func (db *DB) ReplaceLineup(ctx context.Context, bands []data.Band) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("1 = 1").
			Delete(&data.Band{}).
			Error; err != nil {
			return fmt.Errorf("error clearing bands: %w", err)
		}
		for i := range bands {
			if bands[i].Name == "" {
				return fmt.Errorf("no band name")
			}
			if err := tx.
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&bands[i]).
				Error; err != nil {
				return fmt.Errorf("error inserting band '%s': %w", bands[i].Name, err)
			}
		}
		return nil
	})
}

// Bands returns the lineup sorted by name.
func (db *DB) Bands(ctx context.Context) ([]data.Band, error) {
	var bands []data.Band
	if err := db.WithContext(ctx).
		Order("name").
		Find(&bands).
		Error; err != nil {
		return nil, fmt.Errorf("error getting bands: %w", err)
	}
	return bands, nil
}

// ArtistImages maps band names to the lineup's picture of them.
func (db *DB) ArtistImages(ctx context.Context) (map[string]string, error) {
	bands, err := db.Bands(ctx)
	if err != nil {
		return nil, err
	}
	images := make(map[string]string, len(bands))
	for _, band := range bands {
		if band.ImageURL != "" {
			images[band.Name] = band.ImageURL
		}
	}
	return images, nil
}

func (db *DB) CountBands(ctx context.Context) (int, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("bands").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting bands: %w", err)
	}
	return int(count), nil
}

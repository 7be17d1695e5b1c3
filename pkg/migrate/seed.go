package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cellar-backend/pkg/db"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	seedWineTypes = []enums.WineType{
		enums.WineTypeSparkling,
		enums.WineTypeFortified,
		enums.WineTypeDessert,
		enums.WineTypeRed,
		enums.WineTypeWhite,
		enums.WineTypeRose,
	}
	seedSweetness = []enums.Sweetness{enums.SweetnessDry, enums.SweetnessOffDry, enums.SweetnessSweet}
	seedBodies    = []enums.WineBody{enums.WineBodyLight, enums.WineBodyMedium, enums.WineBodyFull}
)

// SeedVocabularies inserts the fixed wine types and styles when missing.
func SeedVocabularies(ctx context.Context, client *db.Client) error {
	return client.WithTx(ctx, func(tx *gorm.DB) error {
		types := make([]models.WineType, 0, len(seedWineTypes))
		for _, t := range seedWineTypes {
			types = append(types, models.WineType{Type: t})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error; err != nil {
			return fmt.Errorf("seed wine types: %w", err)
		}

		styles := make([]models.WineStyle, 0, len(seedSweetness)*len(seedBodies))
		for _, s := range seedSweetness {
			for _, b := range seedBodies {
				styles = append(styles, models.WineStyle{Sweetness: s, Body: b})
			}
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&styles).Error; err != nil {
			return fmt.Errorf("seed wine styles: %w", err)
		}
		return nil
	})
}

package models

import "github.com/angelmondragon/cellar-backend/pkg/enums"

type Region struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Country string `gorm:"column:country;type:varchar(100);not null;uniqueIndex:uq_regions_country_region"`
	Region  string `gorm:"column:region;type:varchar(100);not null;uniqueIndex:uq_regions_country_region"`
}

type WineType struct {
	ID   int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Type enums.WineType `gorm:"column:type;type:varchar(50);not null;uniqueIndex"`
}

type WineStyle struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Sweetness enums.Sweetness `gorm:"column:sweetness;type:varchar(50);not null;uniqueIndex:uq_wine_styles_sweetness_body"`
	Body      enums.WineBody  `gorm:"column:body;type:varchar(50);not null;uniqueIndex:uq_wine_styles_sweetness_body"`
}

type Appellation struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
}

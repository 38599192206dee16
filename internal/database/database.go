package database

import (
	"fmt"

	"github.com/Sukanto01899/captcha-backend/internal/config"
	"github.com/Sukanto01899/captcha-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAirdropConfig(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AirdropConfig{},
	)
}

// seedAirdropConfig guarantees the singleton row exists so reads never have
// to special-case an empty table.
func seedAirdropConfig(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.AirdropConfig{}).Where("key = ?", models.AirdropConfigKey).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	cfg := models.AirdropConfig{
		Key:              models.AirdropConfigKey,
		PoolAmount:       "0",
		ClaimAmount:      "0",
		MaxClaimsPerUser: 1,
	}

	return db.Create(&cfg).Error
}

package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

var DB *gorm.DB

func Init(cfg config.DBConfig) error {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.TimeZone,
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := Migrate(conn); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	DB = conn
	slog.Info("database connected and migrated")
	return nil
}

// Migrate creates or updates every table the storefront owns.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductImage{},
		&models.Order{},
		&models.OrderLineItem{},
	)
}

// ForUpdate scopes the next read to a pessimistic row lock held until the
// surrounding transaction ends. Only meaningful inside a transaction.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsDuplicateKey reports whether err comes from a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

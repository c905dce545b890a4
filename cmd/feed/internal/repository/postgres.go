package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

// AccountRecord is a registered identity row.
type AccountRecord struct {
	ID             uint      `gorm:"primaryKey"`
	Name           string    `gorm:"type:text;not null"`
	Email          string    `gorm:"type:text;not null;uniqueIndex:idx_account_email"`
	CredentialHash string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (AccountRecord) TableName() string { return "account" }

// WatchlistRecord is one persisted subscription; the unique index on
// (email, symbol) backs the replace-if-exists upsert.
type WatchlistRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Email      string    `gorm:"type:text;not null;uniqueIndex:idx_watchlist_email_symbol"`
	Symbol     string    `gorm:"type:text;not null;uniqueIndex:idx_watchlist_email_symbol"`
	EntryPrice float64   `gorm:"type:numeric;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (WatchlistRecord) TableName() string { return "watchlist_item" }

// Compile-time check to ensure PostgresStore implements AccountStore
var _ AccountStore = (*PostgresStore)(nil)

type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to Postgres and runs the schema migration.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&AccountRecord{}, &WatchlistRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate account tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var rec AccountRecord
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres account lookup: %w", err)
	}

	var items []WatchlistRecord
	if err := p.db.WithContext(ctx).
		Where("email = ?", email).
		Order("symbol asc").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("postgres watchlist lookup: %w", err)
	}

	acct := &models.Account{Name: rec.Name, Email: rec.Email, CredentialHash: rec.CredentialHash}
	for _, item := range items {
		acct.Subscriptions = append(acct.Subscriptions, models.Subscription{
			Symbol:     item.Symbol,
			EntryPrice: item.EntryPrice,
		})
	}
	return acct, nil
}

func (p *PostgresStore) Create(ctx context.Context, name, email, credentialHash string) (*models.Account, error) {
	rec := AccountRecord{Name: name, Email: email, CredentialHash: credentialHash}
	err := p.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("postgres account create: %w", err)
	}
	return &models.Account{Name: name, Email: email, CredentialHash: credentialHash}, nil
}

func (p *PostgresStore) AddSubscription(ctx context.Context, email, symbol string, entryPrice float64) error {
	item := WatchlistRecord{Email: email, Symbol: symbol, EntryPrice: entryPrice}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"entry_price", "updated_at"}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("postgres add subscription: %w", err)
	}
	return nil
}

func (p *PostgresStore) RemoveSubscription(ctx context.Context, email, symbol string) error {
	err := p.db.WithContext(ctx).
		Where("email = ? AND symbol = ?", email, symbol).
		Delete(&WatchlistRecord{}).Error
	if err != nil {
		return fmt.Errorf("postgres remove subscription: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	db, err := p.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

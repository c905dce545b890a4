package repository

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("account already exists")
)

// AccountStore is the durable identity and watchlist storage consumed by the
// hub. Implementations may block on I/O; the dispatcher never calls into it.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, name, email, credentialHash string) (*models.Account, error)
	// AddSubscription has replace-if-exists semantics: at most one persisted
	// subscription per (email, symbol), holding the latest entry price.
	AddSubscription(ctx context.Context, email, symbol string, entryPrice float64) error
	RemoveSubscription(ctx context.Context, email, symbol string) error
	Close() error
}

// HashCredential derives the stored hash for a plaintext password.
func HashCredential(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyCredential reports whether the plaintext matches the stored hash.
func VerifyCredential(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

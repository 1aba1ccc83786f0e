package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/unicollab/backend/internal/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for credential storage
type AccountRepository interface {
	CreateAccount(account *models.Account) error
	GetAccountByUID(uid string) (*models.Account, error)
	GetAccountByEmail(email string) (*models.Account, error)
	GetAccountByFirebaseUID(firebaseUID string) (*models.Account, error)
	UpdateAccount(account *models.Account) error
	RevokeTokens(uid string, at time.Time) error
}

// PostgresAccountRepository implements AccountRepository for PostgreSQL
type PostgresAccountRepository struct {
	db *gorm.DB
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository
func NewPostgresAccountRepository(db *gorm.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

// CreateAccount inserts a new account. Emails are stored lowercased.
func (r *PostgresAccountRepository) CreateAccount(account *models.Account) error {
	account.Email = normalizeEmail(account.Email)
	if _, err := r.GetAccountByEmail(account.Email); err == nil {
		return ErrAccountExists
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return r.db.Create(account).Error
}

// GetAccountByUID retrieves an account by its application uid
func (r *PostgresAccountRepository) GetAccountByUID(uid string) (*models.Account, error) {
	return r.first("uid = ?", uid)
}

// GetAccountByEmail retrieves an account by email
func (r *PostgresAccountRepository) GetAccountByEmail(email string) (*models.Account, error) {
	return r.first("email = ?", normalizeEmail(email))
}

// GetAccountByFirebaseUID retrieves an account linked to a Firebase user
func (r *PostgresAccountRepository) GetAccountByFirebaseUID(firebaseUID string) (*models.Account, error) {
	return r.first("firebase_uid = ?", firebaseUID)
}

// UpdateAccount saves every column of the account
func (r *PostgresAccountRepository) UpdateAccount(account *models.Account) error {
	return r.db.Save(account).Error
}

// RevokeTokens rejects every session token issued before at.
func (r *PostgresAccountRepository) RevokeTokens(uid string, at time.Time) error {
	res := r.db.Model(&models.Account{}).Where("uid = ?", uid).Update("tokens_valid_after", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *PostgresAccountRepository) first(query string, arg any) (*models.Account, error) {
	var account models.Account
	if err := r.db.Where(query, arg).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

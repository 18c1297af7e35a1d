// Package users persists credential records with GORM and implements
// auth.Store.
//
// # Usage
//
//	repo := users.NewRepository(db.DB)
//	user, err := repo.LookupByToken(token)
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/rolegate/internal/auth"
	"github.com/mrlokans/rolegate/internal/entities"
)

var _ auth.Store = (*Repository)(nil)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a record if neither its username nor its token is taken.
// The existence check and the insert share one transaction, and the unique
// indexes catch anything that slips between them.
func (r *Repository) Create(user *entities.User) (*entities.User, error) {
	if user == nil || user.Username == "" {
		return nil, auth.ErrUsernameRequired
	}

	record := user.Clone()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Token != nil && record.TokenIssuedAt == nil {
		now := time.Now().UTC()
		record.TokenIssuedAt = &now
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		query := tx.Model(&entities.User{}).Where("username = ?", record.Username)
		if record.Token != nil {
			query = query.Or("token = ?", *record.Token)
		}
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", auth.ErrDuplicateIdentity, record.Username)
		}
		return tx.Create(record).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", auth.ErrDuplicateIdentity, record.Username)
		}
		return nil, err
	}

	return record.Clone(), nil
}

// LookupByToken retrieves a user by their static token.
func (r *Repository) LookupByToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, auth.ErrInvalidCredential
	}
	var user entities.User
	if err := r.db.Where("token = ?", token).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// LookupByIdentity retrieves a user by username.
func (r *Repository) LookupByIdentity(username string) (*entities.User, error) {
	var user entities.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("username").Find(&users).Error
	return users, err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.ErrInvalidCredential
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, auth.ErrDuplicateIdentity) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

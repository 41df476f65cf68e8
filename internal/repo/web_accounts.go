package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiyaportal/accountd/internal/models"
	"gorm.io/gorm"
)

// WebAccounts provides access to the web-facing account store.
type WebAccounts struct {
	db *gorm.DB
}

// NewWebAccounts constructs a WebAccounts repository over the given handle,
// which may be a transaction.
func NewWebAccounts(db *gorm.DB) *WebAccounts {
	return &WebAccounts{db: db}
}

// FindByUsername returns the account with the given username.
// Returns gorm.ErrRecordNotFound when absent.
func (r *WebAccounts) FindByUsername(ctx context.Context, username string) (*models.WebAccount, error) {
	var account models.WebAccount
	if errFind := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; errFind != nil {
		return nil, errFind
	}
	return &account, nil
}

// FindByIdentityRef returns the account linked to the given external identity.
// Returns gorm.ErrRecordNotFound when absent.
func (r *WebAccounts) FindByIdentityRef(ctx context.Context, identityRef string) (*models.WebAccount, error) {
	var account models.WebAccount
	if errFind := r.db.WithContext(ctx).Where("supabase_uid = ?", identityRef).First(&account).Error; errFind != nil {
		return nil, errFind
	}
	return &account, nil
}

// Create inserts a new web account. Uniqueness violations propagate to the
// caller for classification.
func (r *WebAccounts) Create(ctx context.Context, account *models.WebAccount) error {
	if errCreate := r.db.WithContext(ctx).Create(account).Error; errCreate != nil {
		return fmt.Errorf("repo: create web account: %w", errCreate)
	}
	return nil
}

// SetGameUserUID backfills the game account link on an existing web account.
func (r *WebAccounts) SetGameUserUID(ctx context.Context, id, gameUserUID uint64) error {
	if errUpdate := r.db.WithContext(ctx).
		Model(&models.WebAccount{}).
		Where("id = ?", id).
		Update("game_user_uid", gameUserUID).Error; errUpdate != nil {
		return fmt.Errorf("repo: link game account: %w", errUpdate)
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (r *WebAccounts) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	if errUpdate := r.db.WithContext(ctx).
		Model(&models.WebAccount{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error; errUpdate != nil {
		return fmt.Errorf("repo: touch last login: %w", errUpdate)
	}
	return nil
}

package repo

import (
	"context"
	"fmt"

	"github.com/shaiyaportal/accountd/internal/models"
	"gorm.io/gorm"
)

// GameLoginNameLimit is the game store's username column width. Web usernames
// are truncated to this length when mirrored into the game store.
const GameLoginNameLimit = 18

// TruncateLoginName shortens a web username to the game store's limit.
func TruncateLoginName(username string) string {
	if len(username) > GameLoginNameLimit {
		return username[:GameLoginNameLimit]
	}
	return username
}

// GameAccounts provides access to the game-engine account store.
type GameAccounts struct {
	db *gorm.DB
}

// NewGameAccounts constructs a GameAccounts repository over the given handle,
// which may be a transaction.
func NewGameAccounts(db *gorm.DB) *GameAccounts {
	return &GameAccounts{db: db}
}

// FindByLoginOrIdentity returns the account matching either the truncated
// login name or the external identity reference. Either match is
// authoritative; the identity match tolerates username drift after
// truncation. Returns gorm.ErrRecordNotFound when absent.
func (r *GameAccounts) FindByLoginOrIdentity(ctx context.Context, login string, identityRef *string) (*models.GameAccount, error) {
	q := r.db.WithContext(ctx)
	if identityRef != nil && *identityRef != "" {
		q = q.Where("user_id = ? OR supabase_uid = ?", TruncateLoginName(login), *identityRef)
	} else {
		q = q.Where("user_id = ?", TruncateLoginName(login))
	}
	var account models.GameAccount
	if errFind := q.First(&account).Error; errFind != nil {
		return nil, errFind
	}
	return &account, nil
}

// FindByIdentityRef returns the account linked to the given external
// identity. Returns gorm.ErrRecordNotFound when absent.
func (r *GameAccounts) FindByIdentityRef(ctx context.Context, identityRef string) (*models.GameAccount, error) {
	var account models.GameAccount
	if errFind := r.db.WithContext(ctx).Where("supabase_uid = ?", identityRef).First(&account).Error; errFind != nil {
		return nil, errFind
	}
	return &account, nil
}

// Create inserts a new game account. Uniqueness violations propagate to the
// caller for classification.
func (r *GameAccounts) Create(ctx context.Context, account *models.GameAccount) error {
	if errCreate := r.db.WithContext(ctx).Create(account).Error; errCreate != nil {
		return fmt.Errorf("repo: create game account: %w", errCreate)
	}
	return nil
}

// SyncCredential mirrors the most recent verified login credential onto the
// account and clears the IsNew flag.
func (r *GameAccounts) SyncCredential(ctx context.Context, userUID uint64, credential string) error {
	if errUpdate := r.db.WithContext(ctx).
		Model(&models.GameAccount{}).
		Where("user_uid = ?", userUID).
		Updates(map[string]any{
			"password": credential,
			"is_new":   false,
		}).Error; errUpdate != nil {
		return fmt.Errorf("repo: sync credential: %w", errUpdate)
	}
	return nil
}

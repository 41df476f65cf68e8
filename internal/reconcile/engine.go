// Package reconcile implements the identity reconciliation protocol that
// keeps the external identity, the web account, and the game account
// consistent through login and registration, without a distributed
// transaction.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiyaportal/accountd/internal/db"
	"github.com/shaiyaportal/accountd/internal/identity"
	"github.com/shaiyaportal/accountd/internal/models"
	"github.com/shaiyaportal/accountd/internal/repo"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// identityCheckTimeout bounds the fire-and-observe identity provider call.
const identityCheckTimeout = 10 * time.Second

// Engine orchestrates login and registration across the two account stores.
type Engine struct {
	db       *gorm.DB
	web      *repo.WebAccounts
	game     *repo.GameAccounts
	verifier identity.Verifier

	requestTimeout time.Duration
}

// NewEngine constructs an Engine. verifier may be nil, in which case the
// secondary identity check is skipped entirely.
func NewEngine(conn *gorm.DB, verifier identity.Verifier, requestTimeout time.Duration) *Engine {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Engine{
		db:             conn,
		web:            repo.NewWebAccounts(conn),
		game:           repo.NewGameAccounts(conn),
		verifier:       verifier,
		requestTimeout: requestTimeout,
	}
}

// LoginResult is the composite identity returned by a successful login.
type LoginResult struct {
	WebUserID     uint64
	GameUserUID   uint64
	Username      string
	Email         string
	IsNewGameUser bool
}

// Login authenticates a player against the web store and reconciles the game
// store: the game account is created lazily on first login and its credential
// is synchronized on every subsequent one.
func (e *Engine) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &ValidationError{Message: "username and password required"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	account, errFind := e.web.FindByUsername(ctx, username)
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			log.WithField("username", username).Info("login: unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, &UpstreamError{Op: "load web account", Err: errFind}
	}

	if account.PasswordHash != password {
		log.WithField("username", username).Info("login: credential mismatch")
		return nil, ErrInvalidCredentials
	}

	// Defense-in-depth signal only. Outcome is logged and never consulted.
	if e.verifier != nil && account.SupabaseUID != nil && account.Email != "" {
		e.observeIdentityCheck(username, account.Email, password)
	}

	gameAccount, created, errEnsure := e.ensureGameAccount(ctx, account, password)
	if errEnsure != nil {
		return nil, errEnsure
	}

	if !created {
		if errSync := e.game.SyncCredential(ctx, gameAccount.UserUID, password); errSync != nil {
			return nil, &UpstreamError{Op: "sync game credential", Err: errSync}
		}
	}

	if account.GameUserUID == nil || *account.GameUserUID != gameAccount.UserUID {
		if errLink := e.web.SetGameUserUID(ctx, account.ID, gameAccount.UserUID); errLink != nil {
			return nil, &UpstreamError{Op: "link game account", Err: errLink}
		}
	}

	if errTouch := e.web.TouchLastLogin(ctx, account.ID, time.Now().UTC()); errTouch != nil {
		return nil, &UpstreamError{Op: "record last login", Err: errTouch}
	}

	log.WithFields(log.Fields{
		"username":     username,
		"web_user_id":  account.ID,
		"game_user_id": gameAccount.UserUID,
		"is_new":       created,
	}).Info("login: success")

	return &LoginResult{
		WebUserID:     account.ID,
		GameUserUID:   gameAccount.UserUID,
		Username:      username,
		Email:         account.Email,
		IsNewGameUser: created,
	}, nil
}

// ensureGameAccount looks up the game account for the given web account and
// provisions one when absent. A uniqueness violation on insert means a
// concurrent first login won the race; the loser re-reads and proceeds as
// already provisioned.
func (e *Engine) ensureGameAccount(ctx context.Context, account *models.WebAccount, password string) (*models.GameAccount, bool, error) {
	existing, errFind := e.game.FindByLoginOrIdentity(ctx, account.Username, account.SupabaseUID)
	if errFind == nil {
		return existing, false, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, false, &UpstreamError{Op: "load game account", Err: errFind}
	}

	fresh := &models.GameAccount{
		UserID:      repo.TruncateLoginName(account.Username),
		Password:    password,
		Email:       account.Email,
		SupabaseUID: account.SupabaseUID,
		JoinDate:    time.Now().UTC(),
		Status:      models.GameStatusOffline,
		UserType:    "U",
		IsNew:       true,
	}
	if errCreate := e.game.Create(ctx, fresh); errCreate != nil {
		if db.IsUniqueViolation(errCreate) {
			winner, errReread := e.game.FindByLoginOrIdentity(ctx, account.Username, account.SupabaseUID)
			if errReread != nil {
				return nil, false, &UpstreamError{Op: "reread game account after conflict", Err: errReread}
			}
			log.WithField("username", account.Username).Info("login: game account provisioned concurrently")
			return winner, false, nil
		}
		return nil, false, &UpstreamError{Op: "create game account", Err: errCreate}
	}

	// The store assigns the UID; re-read rather than trusting the insert.
	created, errReread := e.game.FindByLoginOrIdentity(ctx, account.Username, account.SupabaseUID)
	if errReread != nil {
		return nil, false, &UpstreamError{Op: "reread created game account", Err: errReread}
	}

	log.WithFields(log.Fields{
		"username":     account.Username,
		"game_user_id": created.UserUID,
	}).Info("login: game account created")

	return created, true, nil
}

// observeIdentityCheck runs the identity provider verification without
// blocking or influencing the login response.
func (e *Engine) observeIdentityCheck(username, email, password string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), identityCheckTimeout)
		defer cancel()

		subject, errVerify := e.verifier.VerifyPassword(ctx, email, password)
		if errVerify != nil {
			log.WithError(errVerify).WithField("username", username).
				Warn("login: identity provider check failed, primary store decision stands")
			return
		}
		log.WithFields(log.Fields{
			"username": username,
			"subject":  subject,
		}).Info("login: identity provider check passed")
	}()
}

// RegisterResult reports the accounts touched by a registration.
type RegisterResult struct {
	WebUserID      uint64
	GameUserUID    *uint64
	AlreadyExisted bool
}

// Register creates the web account for a freshly issued external identity and
// provisions its dependent records (game account, points ledger) in one
// transaction. Replaying the same identity is safe and returns the existing
// account.
func (e *Engine) Register(ctx context.Context, identityRef, username, email, password string) (*RegisterResult, error) {
	identityRef = strings.TrimSpace(identityRef)
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if identityRef == "" || username == "" || email == "" || password == "" {
		return nil, &ValidationError{Message: "missing required fields"}
	}
	if len(identityRef) != 36 {
		return nil, &ValidationError{Message: "invalid user id format"}
	}
	parsed, errParse := uuid.Parse(identityRef)
	if errParse != nil {
		return nil, &ValidationError{Message: "invalid user id format"}
	}
	identityRef = parsed.String()

	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	if existing, errFind := e.web.FindByIdentityRef(ctx, identityRef); errFind == nil {
		log.WithFields(log.Fields{
			"username":    username,
			"web_user_id": existing.ID,
		}).Info("register: identity already provisioned")
		return &RegisterResult{
			WebUserID:      existing.ID,
			GameUserUID:    existing.GameUserUID,
			AlreadyExisted: true,
		}, nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, &UpstreamError{Op: "check existing identity", Err: errFind}
	}

	var webID uint64
	var gameUID uint64
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		web := &models.WebAccount{
			Username:       username,
			Email:          email,
			PasswordHash:   password,
			SupabaseUID:    &identityRef,
			WebAccessLevel: 1,
			CreatedAt:      now,
		}
		if errCreate := repo.NewWebAccounts(tx).Create(ctx, web); errCreate != nil {
			return errCreate
		}

		game := &models.GameAccount{
			UserID:      repo.TruncateLoginName(username),
			Password:    password,
			Email:       email,
			SupabaseUID: &identityRef,
			JoinDate:    now,
			Status:      models.GameStatusOffline,
			UserType:    "U",
			IsNew:       true,
		}
		if errCreate := repo.NewGameAccounts(tx).Create(ctx, game); errCreate != nil {
			return errCreate
		}

		ledger := &models.PointLedger{WebUserID: web.ID}
		if errCreate := tx.Create(ledger).Error; errCreate != nil {
			return errCreate
		}

		web.GameUserUID = &game.UserUID
		if errLink := repo.NewWebAccounts(tx).SetGameUserUID(ctx, web.ID, game.UserUID); errLink != nil {
			return errLink
		}

		webID = web.ID
		gameUID = game.UserUID
		return nil
	})
	if errTx != nil {
		if db.IsUniqueViolationOn(errTx, "supabase_uid") {
			// Lost a concurrent registration for the same identity. The
			// winner's rows are the provisioned state; report them.
			winner, errReread := e.web.FindByIdentityRef(ctx, identityRef)
			if errReread != nil {
				return nil, &UpstreamError{Op: "reread web account after conflict", Err: errReread}
			}
			log.WithField("username", username).Info("register: identity provisioned concurrently")
			return &RegisterResult{
				WebUserID:      winner.ID,
				GameUserUID:    winner.GameUserUID,
				AlreadyExisted: true,
			}, nil
		}
		if db.IsUniqueViolation(errTx) {
			return nil, &ConflictError{Message: "username already exists"}
		}
		return nil, &UpstreamError{Op: "provision accounts", Err: errTx}
	}

	log.WithFields(log.Fields{
		"username":     username,
		"web_user_id":  webID,
		"game_user_id": gameUID,
	}).Info("register: accounts provisioned")

	return &RegisterResult{WebUserID: webID, GameUserUID: &gameUID}, nil
}

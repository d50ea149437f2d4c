// internal/app/accounts/manager.go
//
// Package accounts is the account lifecycle manager: upsert-on-login,
// profile completion, option updates, and the cascading deletion of a
// user and everything that denormalizes from them.
package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/dochub/internal/app/specialids"
	groupstore "github.com/dalemusser/dochub/internal/app/store/groups"
	loginrecordstore "github.com/dalemusser/dochub/internal/app/store/loginrecords"
	loginstore "github.com/dalemusser/dochub/internal/app/store/logins"
	organizationstore "github.com/dalemusser/dochub/internal/app/store/organizations"
	prefstore "github.com/dalemusser/dochub/internal/app/store/prefs"
	userstore "github.com/dalemusser/dochub/internal/app/store/users"
	"github.com/dalemusser/dochub/internal/app/system/normalize"
	"github.com/dalemusser/dochub/internal/app/system/txn"
	"github.com/dalemusser/dochub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sentinel errors. The message text is part of the API contract;
// callers match on these with errors.Is.
var (
	ErrUserNotFound          = errors.New("unable to find user")
	ErrUserNotFoundForUpdate = errors.New("unable to find user to update")
	ErrDeleteTargetNotFound  = errors.New("user not found")
	ErrDeleteNotPermitted    = errors.New("not permitted to delete this user")
	ErrNameMismatch          = errors.New("user name did not match")
	ErrMissingEmail          = errors.New("unable to find mandatory user email")
)

// Profile carries the externally-supplied profile fields the login and
// overwrite paths may apply to a user.
type Profile struct {
	Name      string
	Picture   string
	ConnectID string
	Locale    string
}

// LoginOptions tunes GetUserByLogin. Nil fields leave existing values
// untouched on the update path.
type LoginOptions struct {
	Profile     *Profile
	UserOptions *models.UserOptions
}

// Manager wires the per-entity stores into the lifecycle operations.
// All mutating operations run inside one transaction per call.
type Manager struct {
	client  *mongo.Client
	users   *userstore.Store
	logins  *loginstore.Store
	groups  *groupstore.Store
	orgs    *organizationstore.Store
	prefs   *prefstore.Store
	records *loginrecordstore.Store
	log     *zap.Logger

	// now is swapped out by tests exercising the day-boundary
	// coalescing of lastConnectionAt.
	now func() time.Time

	listeners []Listener
}

func New(client *mongo.Client, db *mongo.Database, log *zap.Logger) *Manager {
	return &Manager{
		client:  client,
		users:   userstore.New(db),
		logins:  loginstore.New(db),
		groups:  groupstore.New(db),
		orgs:    organizationstore.New(db),
		prefs:   prefstore.New(db),
		records: loginrecordstore.New(db),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetUserByLogin resolves or creates a user by email. The lookup key is
// the normalized (lowercase) form; the display email keeps the casing
// the caller supplied. Calling it twice with the same normalized email
// and no options returns the same user unchanged.
func (m *Manager) GetUserByLogin(ctx context.Context, email string, opts *LoginOptions) (models.User, error) {
	login, err := m.logins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return m.createUserForLogin(ctx, email, opts)
		}
		return models.User{}, err
	}

	user, err := m.users.GetByID(ctx, login.UserID)
	if err != nil {
		return models.User{}, err
	}
	return m.refreshUserOnLogin(ctx, *user, *login, email, opts)
}

// GetUserByLoginWithRetry absorbs the race between two concurrent
// first logins for the same new email: the loser of the uniqueness
// race retries once and re-reads the now-committed row. Any other
// error propagates immediately.
func (m *Manager) GetUserByLoginWithRetry(ctx context.Context, email string, opts *LoginOptions) (models.User, error) {
	u, err := m.GetUserByLogin(ctx, email, opts)
	if err == nil || !errors.Is(err, loginstore.ErrDuplicateEmail) {
		return u, err
	}
	m.log.Info("duplicate login race on first login, retrying",
		zap.String("email", normalize.Email(email)))
	return m.GetUserByLogin(ctx, email, opts)
}

// EnsureUserByEmail resolves-or-creates a user with a fixed display
// name. The special-account registry uses this at startup.
func (m *Manager) EnsureUserByEmail(ctx context.Context, email, name string) (models.User, error) {
	return m.GetUserByLoginWithRetry(ctx, email, &LoginOptions{Profile: &Profile{Name: name}})
}

func (m *Manager) createUserForLogin(ctx context.Context, email string, opts *LoginOptions) (models.User, error) {
	now := m.now()

	u := models.User{
		IsFirstTimeUser:  true,
		FirstLoginAt:     &now,
		LastConnectionAt: &now,
	}
	if opts != nil && opts.Profile != nil {
		u.Name = opts.Profile.Name
		u.Picture = opts.Profile.Picture
		u.ConnectID = opts.Profile.ConnectID
		u.Options.Locale = opts.Profile.Locale
	}
	if u.Name == "" {
		u.Name = normalize.NameFromEmail(normalize.Email(email))
	}
	if opts != nil && opts.UserOptions != nil {
		locale := u.Options.Locale
		u.Options = *opts.UserOptions
		if u.Options.Locale == "" {
			u.Options.Locale = locale
		}
	}

	var created models.User
	err := txn.WithTxn(ctx, m.client, func(ctx context.Context) error {
		var err error
		created, err = m.users.Create(ctx, u)
		if err != nil {
			return err
		}
		if _, err := m.logins.Create(ctx, created.ID, email); err != nil {
			return err
		}
		// System addresses never get a personal organization.
		if !specialids.IsSpecialEmail(normalize.Email(email)) {
			org, err := m.orgs.CreatePersonal(ctx, created.ID)
			if err != nil {
				return err
			}
			orgID := &org.ID
			if _, err := m.users.Apply(ctx, created.ID, userstore.Update{RefOrgID: &orgID}); err != nil {
				return err
			}
			created.RefOrgID = &org.ID
		}
		return m.records.Create(ctx, models.LoginRecord{
			UserID:    created.ID,
			Email:     normalize.Email(email),
			CreatedAt: now,
		})
	})
	if err != nil {
		return models.User{}, err
	}

	m.log.Info("created user at first login",
		zap.Int64("user_id", created.ID),
		zap.String("email", normalize.Email(email)))
	return created, nil
}

func (m *Manager) refreshUserOnLogin(ctx context.Context, user models.User, login models.Login, email string, opts *LoginOptions) (models.User, error) {
	now := m.now()
	upd := userstore.Update{}
	dirty := false

	if opts != nil && opts.Profile != nil {
		p := opts.Profile
		name := p.Name
		if name == "" {
			name = normalize.NameFromEmail(login.Email)
		}
		if name != user.Name {
			upd.Name = &name
			dirty = true
		}
		if p.Picture != "" && p.Picture != user.Picture {
			upd.Picture = &p.Picture
			dirty = true
		}
		if p.ConnectID != "" && p.ConnectID != user.ConnectID {
			upd.ConnectID = &p.ConnectID
			dirty = true
		}
		if p.Locale != "" && p.Locale != user.Options.Locale {
			merged := user.Options
			merged.Locale = p.Locale
			upd.Options = &merged
			user.Options = merged
			dirty = true
		}
	}
	if opts != nil && opts.UserOptions != nil {
		merged := *opts.UserOptions
		if merged.Locale == "" {
			merged.Locale = user.Options.Locale
		}
		if merged != user.Options {
			upd.Options = &merged
			user.Options = merged
			dirty = true
		}
	}

	// The display casing follows the most recent login.
	recased := email != "" && email != login.DisplayEmail

	// lastConnectionAt only moves across a calendar-day boundary, so
	// rapid repeated logins within one day issue no write at all.
	crossedDay := user.LastConnectionAt == nil || !sameDay(*user.LastConnectionAt, now)
	if crossedDay {
		upd.LastConnectionAt = &now
		dirty = true
	}

	if !dirty && !recased {
		return user, nil
	}

	err := txn.WithTxn(ctx, m.client, func(ctx context.Context) error {
		if dirty {
			matched, err := m.users.Apply(ctx, user.ID, upd)
			if err != nil {
				return err
			}
			if matched == 0 {
				return ErrUserNotFound
			}
		}
		if recased {
			if err := m.logins.UpdateDisplay(ctx, login.Email, email); err != nil {
				return err
			}
		}
		if crossedDay {
			return m.records.Create(ctx, models.LoginRecord{
				UserID:    user.ID,
				Email:     login.Email,
				CreatedAt: now,
			})
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	if dirty {
		refreshed, err := m.users.GetByID(ctx, user.ID)
		if err != nil {
			return models.User{}, err
		}
		user = *refreshed
	}
	return user, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ExternalProfile is an externally-validated identity (SSO). ConnectID
// is the provider's stable subject identifier.
type ExternalProfile struct {
	ConnectID string
	Email     string
	Name      string
	Picture   string
	Locale    string
}

// EnsureExternalUser syncs an externally-validated profile into the
// identity store, matching by connect id first and email second. When
// the stored record already matches every supplied field, no write of
// any kind is issued; callers sync on every request and rely on that.
func (m *Manager) EnsureExternalUser(ctx context.Context, p ExternalProfile) error {
	user, err := m.findExternalUser(ctx, p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			_, err := m.GetUserByLoginWithRetry(ctx, p.Email, &LoginOptions{
				Profile: &Profile{
					Name:      p.Name,
					Picture:   p.Picture,
					ConnectID: p.ConnectID,
					Locale:    p.Locale,
				},
			})
			return err
		}
		return err
	}

	upd := userstore.Update{}
	dirty := false
	if p.Name != "" && normalize.Name(p.Name) != user.Name {
		upd.Name = &p.Name
		dirty = true
	}
	if p.Picture != "" && p.Picture != user.Picture {
		upd.Picture = &p.Picture
		dirty = true
	}
	if p.ConnectID != "" && p.ConnectID != user.ConnectID {
		upd.ConnectID = &p.ConnectID
		dirty = true
	}
	if p.Locale != "" && p.Locale != user.Options.Locale {
		merged := user.Options
		merged.Locale = p.Locale
		upd.Options = &merged
		dirty = true
	}
	if !dirty {
		return nil
	}
	matched, err := m.users.Apply(ctx, user.ID, upd)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *Manager) findExternalUser(ctx context.Context, p ExternalProfile) (*models.User, error) {
	if p.ConnectID != "" {
		u, err := m.users.GetByConnectID(ctx, p.ConnectID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}
	login, err := m.logins.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	return m.users.GetByID(ctx, login.UserID)
}

// UserUpdate names the fields UpdateUser may change.
type UserUpdate struct {
	Name            *string
	IsFirstTimeUser *bool
}

// UpdateUser applies a partial update. The firstLogin event fires
// exactly on the isFirstTimeUser true -> false transition and carries
// the resulting full-user projection.
func (m *Manager) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (models.User, error) {
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	firstLogin := upd.IsFirstTimeUser != nil && !*upd.IsFirstTimeUser && user.IsFirstTimeUser

	matched, err := m.users.Apply(ctx, id, userstore.Update{
		Name:            upd.Name,
		IsFirstTimeUser: upd.IsFirstTimeUser,
	})
	if err != nil {
		return models.User{}, err
	}
	if matched == 0 {
		return models.User{}, ErrUserNotFound
	}

	refreshed, err := m.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	if firstLogin {
		logins, err := m.logins.ListByUser(ctx, id)
		if err != nil {
			return models.User{}, err
		}
		full, err := MakeFullUser(*refreshed, logins)
		if err != nil {
			return models.User{}, err
		}
		m.emitFirstLogin(ctx, full)
	}
	return *refreshed, nil
}

// UpdateUserOptions overwrites the options bag.
func (m *Manager) UpdateUserOptions(ctx context.Context, id int64, options models.UserOptions) error {
	matched, err := m.users.Apply(ctx, id, userstore.Update{Options: &options})
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrUserNotFound
	}
	return nil
}

// OverwriteProfile carries the full replacement profile for
// OverwriteUser. Every field is applied; there is no partial form.
type OverwriteProfile struct {
	Name    string
	Email   string
	Picture string
	Locale  string
}

// OverwriteUser replaces name, email, picture and locale atomically,
// repointing the user's login row at the new address.
func (m *Manager) OverwriteUser(ctx context.Context, id int64, p OverwriteProfile) (models.User, error) {
	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrUserNotFoundForUpdate
		}
		return models.User{}, err
	}

	options := user.Options
	options.Locale = p.Locale

	err = txn.WithTxn(ctx, m.client, func(ctx context.Context) error {
		matched, err := m.users.Apply(ctx, id, userstore.Update{
			Name:    &p.Name,
			Picture: &p.Picture,
			Options: &options,
		})
		if err != nil {
			return err
		}
		if matched == 0 {
			return ErrUserNotFoundForUpdate
		}
		return m.logins.ReplaceForUser(ctx, id, p.Email)
	})
	if err != nil {
		return models.User{}, err
	}

	refreshed, err := m.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return *refreshed, nil
}

// DeleteUser removes a user and everything that denormalizes from
// them: logins, group memberships, preference rows, the personal
// organization and the login audit trail, all in one transaction.
// Deletion is self-service only, and when confirmName is non-empty it
// must match the target's current name exactly.
func (m *Manager) DeleteUser(ctx context.Context, actingUserID, targetUserID int64, confirmName string) error {
	if actingUserID != targetUserID || specialids.IsSpecial(targetUserID) {
		return ErrDeleteNotPermitted
	}

	user, err := m.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrDeleteTargetNotFound
		}
		return err
	}
	if confirmName != "" && confirmName != user.Name {
		return ErrNameMismatch
	}

	err = txn.WithTxn(ctx, m.client, func(ctx context.Context) error {
		deleted, err := m.users.Delete(ctx, targetUserID)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return ErrDeleteTargetNotFound
		}
		if _, err := m.logins.DeleteByUser(ctx, targetUserID); err != nil {
			return err
		}
		if _, err := m.groups.RemoveUserFromAll(ctx, targetUserID); err != nil {
			return err
		}
		if _, err := m.prefs.DeleteByUser(ctx, targetUserID); err != nil {
			return err
		}
		if _, err := m.orgs.DeleteByOwner(ctx, targetUserID); err != nil {
			return err
		}
		_, err = m.records.DeleteByUser(ctx, targetUserID)
		return err
	})
	if err != nil {
		return err
	}

	m.log.Info("deleted user", zap.Int64("user_id", targetUserID))
	return nil
}

// GetUser loads a user by id.
func (m *Manager) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := m.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return *u, nil
}

// GetFullUser loads a user and projects it through MakeFullUser.
func (m *Manager) GetFullUser(ctx context.Context, id int64) (models.FullUser, error) {
	user, err := m.GetUser(ctx, id)
	if err != nil {
		return models.FullUser{}, err
	}
	logins, err := m.logins.ListByUser(ctx, id)
	if err != nil {
		return models.FullUser{}, err
	}
	return MakeFullUser(user, logins)
}

// MakeFullUser builds the outward-facing projection from a user and
// their login rows. No I/O. The user must have a login with a
// non-empty display email.
func MakeFullUser(user models.User, logins []models.Login) (models.FullUser, error) {
	email := ""
	for _, l := range logins {
		if l.DisplayEmail != "" {
			email = l.DisplayEmail
			break
		}
	}
	if email == "" {
		return models.FullUser{}, ErrMissingEmail
	}

	full := models.FullUser{
		ID:              user.ID,
		Name:            user.Name,
		Email:           email,
		Picture:         user.Picture,
		ConnectID:       user.ConnectID,
		Options:         user.Options,
		IsFirstTimeUser: user.IsFirstTimeUser,
		RefOrgID:        user.RefOrgID,
	}
	switch {
	case specialids.IsAnonymous(user.ID):
		full.Anonymous = true
	case specialids.IsSupport(user.ID):
		full.IsSupport = true
	}
	return full, nil
}

// PartialProfile is an unresolved (name, email) pair from an external
// source, e.g. a sharing dialog's free-text invite list.
type PartialProfile struct {
	Name  string
	Email string
}

// CompletedProfile is a PartialProfile matched to a known user.
type CompletedProfile struct {
	ID        int64
	Name      string
	Email     string
	Picture   string
	Locale    string
	Anonymous bool
}

// CompleteProfiles batch-resolves (name, email) pairs against the
// identity store. Emails are matched case-insensitively; pairs with no
// matching login are omitted from the result.
func (m *Manager) CompleteProfiles(ctx context.Context, partials []PartialProfile) ([]CompletedProfile, error) {
	emails := make([]string, 0, len(partials))
	for _, p := range partials {
		emails = append(emails, p.Email)
	}
	logins, err := m.logins.GetByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(logins))
	for _, l := range logins {
		userIDs = append(userIDs, l.UserID)
	}
	users, err := m.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]CompletedProfile, 0, len(partials))
	for _, p := range partials {
		login, ok := logins[normalize.Email(p.Email)]
		if !ok {
			continue
		}
		user, ok := users[login.UserID]
		if !ok {
			continue
		}
		name := p.Name
		if name == "" {
			name = user.Name
		}
		out = append(out, CompletedProfile{
			ID:        user.ID,
			Name:      name,
			Email:     p.Email,
			Picture:   user.Picture,
			Locale:    user.Options.Locale,
			Anonymous: specialids.IsAnonymous(user.ID),
		})
	}
	return out, nil
}

// internal/app/specialids/specialids.go
//
// Process-wide registry of the four fixed system accounts: anonymous,
// previewer, everyone, support. Initialize resolves them once into
// concrete user rows by well-known email and caches the ids; every
// accessor fails fast until that has happened. Initialization is an
// explicit startup step, not something the accessors trigger.
package specialids

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/dochub/internal/domain/models"
)

// Well-known addresses for the special accounts. These never belong to
// a human login and never receive a personal organization.
const (
	AnonymousEmail = "anonymous@system.dochub"
	PreviewerEmail = "previewer@system.dochub"
	EveryoneEmail  = "everyone@system.dochub"
	SupportEmail   = "support@system.dochub"

	AnonymousName = "Anonymous"
	PreviewerName = "Previewer"
	EveryoneName  = "Everyone"
	SupportName   = "Support"
)

// UserSource resolves-or-creates a user by well-known email. The
// accounts manager satisfies this.
type UserSource interface {
	EnsureUserByEmail(ctx context.Context, email, name string) (models.User, error)
}

var (
	mu          sync.RWMutex
	initialized bool

	anonymousID int64
	previewerID int64
	everyoneID  int64
	supportID   int64
)

// Initialize creates the four special accounts if absent and caches
// their ids. Safe to call more than once; later calls are no-ops.
func Initialize(ctx context.Context, src UserSource) error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return nil
	}

	accounts := []struct {
		email string
		name  string
		dst   *int64
	}{
		{AnonymousEmail, AnonymousName, &anonymousID},
		{PreviewerEmail, PreviewerName, &previewerID},
		{EveryoneEmail, EveryoneName, &everyoneID},
		{SupportEmail, SupportName, &supportID},
	}
	for _, a := range accounts {
		u, err := src.EnsureUserByEmail(ctx, a.email, a.name)
		if err != nil {
			return fmt.Errorf("initialize special account %s: %w", a.name, err)
		}
		*a.dst = u.ID
	}
	initialized = true
	return nil
}

// Reset drops the cached ids, returning the registry to the
// uninitialized state. Test use only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	anonymousID, previewerID, everyoneID, supportID = 0, 0, 0, 0
}

func get(name string, id *int64) (int64, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return 0, fmt.Errorf("%s user not available", name)
	}
	return *id, nil
}

func AnonymousUserID() (int64, error) { return get(AnonymousName, &anonymousID) }
func PreviewerUserID() (int64, error) { return get(PreviewerName, &previewerID) }
func EveryoneUserID() (int64, error)  { return get(EveryoneName, &everyoneID) }
func SupportUserID() (int64, error)   { return get(SupportName, &supportID) }

// IsAnonymous reports whether id is the anonymous account. Always
// false before Initialize.
func IsAnonymous(id int64) bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized && id == anonymousID
}

// IsSupport reports whether id is the support account. Always false
// before Initialize.
func IsSupport(id int64) bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized && id == supportID
}

// IsSpecial reports whether id is any of the four special accounts.
func IsSpecial(id int64) bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized &&
		(id == anonymousID || id == previewerID || id == everyoneID || id == supportID)
}

// IsSpecialEmail reports whether email is one of the well-known
// special-account addresses. Pure; usable before Initialize.
func IsSpecialEmail(email string) bool {
	switch email {
	case AnonymousEmail, PreviewerEmail, EveryoneEmail, SupportEmail:
		return true
	}
	return false
}

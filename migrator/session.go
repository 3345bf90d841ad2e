package migrator

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mattermost/rocketchat-matrix-migrator/matrix"
	"github.com/mattermost/rocketchat-matrix-migrator/store"
)

// NoCredentialError means no access token is known for a user, either because
// the user was never migrated or because the mapping carries no token.
type NoCredentialError struct {
	// SourceID or TargetID identifies the user that was looked up.
	SourceID string
	TargetID string
}

func (e *NoCredentialError) Error() string {
	if e.SourceID != "" {
		return fmt.Sprintf("no access token for user %s", e.SourceID)
	}
	return fmt.Sprintf("no access token for user %s", e.TargetID)
}

// IsNoCredential reports whether err is, or wraps, a *NoCredentialError.
func IsNoCredential(err error) bool {
	var noCred *NoCredentialError
	return errors.As(err, &noCred)
}

// SessionProvider resolves the credential an operation acts with.
type SessionProvider struct {
	store   store.Store
	admin   matrix.Credential
	asToken string
}

// NewSessionProvider creates a provider. admin is used for admin API calls and
// as the fallback identity; asToken is the application service token used to
// send backdated events on behalf of migrated users.
func NewSessionProvider(st store.Store, admin matrix.Credential, asToken string) *SessionProvider {
	return &SessionProvider{
		store:   st,
		admin:   admin,
		asToken: asToken,
	}
}

// SessionFor returns the credential of the migrated user with the given
// Rocket.Chat id.
func (p *SessionProvider) SessionFor(ctx context.Context, sourceUserID string) (matrix.Credential, error) {
	mapping, err := p.store.GetMapping(ctx, sourceUserID, store.KindUser)
	if err != nil {
		return matrix.Credential{}, errors.Wrapf(err, "failed to look up user %s", sourceUserID)
	}
	if mapping == nil || mapping.TargetID == "" || mapping.Credential == "" {
		return matrix.Credential{}, &NoCredentialError{SourceID: sourceUserID}
	}
	return matrix.Credential{UserID: mapping.TargetID, AccessToken: mapping.Credential}, nil
}

// SessionForTarget returns the credential of the migrated user with the given
// Matrix id.
func (p *SessionProvider) SessionForTarget(ctx context.Context, targetUserID string) (matrix.Credential, error) {
	if targetUserID == "" {
		return matrix.Credential{}, &NoCredentialError{}
	}
	mapping, err := p.store.GetByTargetID(ctx, targetUserID)
	if err != nil {
		return matrix.Credential{}, errors.Wrapf(err, "failed to look up user %s", targetUserID)
	}
	if mapping == nil || mapping.Kind != store.KindUser || mapping.Credential == "" {
		return matrix.Credential{}, &NoCredentialError{TargetID: targetUserID}
	}
	return matrix.Credential{UserID: mapping.TargetID, AccessToken: mapping.Credential}, nil
}

// SessionForAdmin returns the homeserver admin credential.
func (p *SessionProvider) SessionForAdmin() matrix.Credential {
	return p.admin
}

// ApplicationServiceSession returns the application service token acting as
// asUserID. An empty asUserID acts as the application service's own user.
func (p *SessionProvider) ApplicationServiceSession(asUserID string) matrix.Credential {
	return matrix.Credential{
		UserID:      asUserID,
		AccessToken: p.asToken,
		Impersonate: asUserID != "",
	}
}

// AdminUserID returns the Matrix id of the admin account.
func (p *SessionProvider) AdminUserID() string {
	return p.admin.UserID
}

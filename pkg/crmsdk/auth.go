package crmsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pancarangroup/crmportal/pkg/eventbus"
	"github.com/pancarangroup/crmportal/pkg/tokenx"
)

// SessionState is the orchestrator's view of the session lifecycle.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateAuthenticating
	StateLoggedIn
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// LoginResult is what a successful login leaves behind, mirroring the
// persisted snapshot.
type LoginResult struct {
	Profile      *UserProfile
	AbilityRules []AbilityRule
	TenantType   string
	FeatureRoles []string
}

// AuthService composes the token client, the CRM pipeline, the session
// store and the event bus into the end-to-end login/role-resolution/logout
// workflow. All collaborators are injected; nothing is reached ambiently.
//
// Concurrent Login calls are not serialised here — the last writer to the
// session store wins. Callers are expected to serialise login attempts.
type AuthService struct {
	tokens *TokenClient
	crm    *Client
	store  SessionStore
	bus    *eventbus.Bus
	logger *slog.Logger

	mu    sync.Mutex
	state SessionState
}

// NewAuthService wires the orchestrator.
func NewAuthService(tokens *TokenClient, crm *Client, store SessionStore, bus *eventbus.Bus, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		tokens: tokens,
		crm:    crm,
		store:  store,
		bus:    bus,
		logger: logger,
		state:  StateLoggedOut,
	}
}

// State returns the current session state.
func (a *AuthService) State() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AuthService) setState(s SessionState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Login runs the full login workflow: password grant, subject extraction,
// default-role lookup (service credential only — no session JWT exists
// yet), JWT persistence, profile fetch, ability-rule derivation and the
// final atomic snapshot save.
//
// On failure at any step the session is torn down and the original failure
// propagates; only failures outside the error taxonomy are wrapped as
// ErrLoginFailed.
func (a *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	// Local validation fails fast, before any state is touched and before
	// any network call.
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Message: "password is required"}
	}

	a.setState(StateAuthenticating)

	result, err := a.login(ctx, username, password)
	if err != nil {
		if tdErr := teardown(ctx, a.store, a.bus); tdErr != nil {
			a.logger.Error("teardown after failed login", "error", tdErr)
		}
		a.setState(StateLoggedOut)
		return nil, wrapLoginError(err)
	}

	a.setState(StateLoggedIn)
	a.logger.Info("login complete",
		"username", result.Profile.Username,
		"role", result.Profile.RoleName,
		"tenant_type", result.TenantType)

	return result, nil
}

func (a *AuthService) login(ctx context.Context, username, password string) (*LoginResult, error) {
	// Discard any stale session silently; this is not a logout.
	if err := a.store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear stale session: %w", err)
	}

	tokenResp, err := a.tokens.PasswordGrant(ctx, username, password)
	if err != nil {
		return nil, err
	}

	subject, err := tokenx.Subject(tokenResp.IDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to extract subject from identity token: %w", err)
	}

	// Bootstrap call: the backend JWT does not exist yet, so this is the
	// one request that goes out with the service credential alone.
	var roleResp DefaultRoleResponse
	if err := a.crm.Get(ctx, "/user/"+subject+"/default-role", &roleResp, SkipAuth()); err != nil {
		return nil, err
	}
	if roleResp.JWT == "" {
		return nil, errors.New("default-role response carries no jwt")
	}

	if err := a.store.SetAccessToken(ctx, roleResp.JWT); err != nil {
		return nil, fmt.Errorf("failed to persist session token: %w", err)
	}

	var profileResp ProfileResponse
	if err := a.crm.Get(ctx, "/user/profile", &profileResp); err != nil {
		return nil, err
	}

	profile := buildUserProfile(&profileResp, &roleResp)
	rules := DeriveAbilityRules(roleResp.FeatureRoles)

	snap := Snapshot{
		AccessToken:  roleResp.JWT,
		Profile:      profile,
		AbilityRules: rules,
		TenantType:   roleResp.TenantType,
		FeatureRoles: roleResp.FeatureRoles,
	}
	if err := a.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &LoginResult{
		Profile:      profile,
		AbilityRules: rules,
		TenantType:   roleResp.TenantType,
		FeatureRoles: roleResp.FeatureRoles,
	}, nil
}

// Logout tears the session down from any state. Idempotent.
func (a *AuthService) Logout(ctx context.Context) error {
	if err := teardown(ctx, a.store, a.bus); err != nil {
		return err
	}
	a.setState(StateLoggedOut)
	a.logger.Info("logged out")
	return nil
}

// CheckSession re-validates the stored backend JWT. An absent or expired
// token tears the session down and returns ErrSessionExpired.
func (a *AuthService) CheckSession(ctx context.Context) error {
	token, err := a.store.AccessToken(ctx)
	if err != nil {
		return err
	}

	if token == "" || tokenx.IsExpired(token) {
		if tdErr := teardown(ctx, a.store, a.bus); tdErr != nil {
			return tdErr
		}
		a.setState(StateLoggedOut)
		return ErrSessionExpired
	}

	a.setState(StateLoggedIn)
	return nil
}

// SwitchRole exchanges the current session JWT for a role-scoped one and
// refreshes the persisted profile.
func (a *AuthService) SwitchRole(ctx context.Context, roleID string) (*LoginResult, error) {
	if roleID == "" {
		return nil, &ValidationError{Field: "roleId", Message: "role id is required"}
	}

	var switchResp SwitchRoleResponse
	if err := a.crm.Post(ctx, "/user/switch-role", map[string]string{"roleId": roleID}, &switchResp); err != nil {
		return nil, err
	}
	if switchResp.JWT == "" {
		return nil, ErrRoleSwitch
	}

	if err := a.store.SetAccessToken(ctx, switchResp.JWT); err != nil {
		return nil, fmt.Errorf("failed to persist session token: %w", err)
	}

	var profileResp ProfileResponse
	if err := a.crm.Get(ctx, "/user/profile", &profileResp); err != nil {
		return nil, err
	}

	// Role metadata not returned by the switch endpoint is carried over
	// from the stored snapshot.
	prev, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	roleResp := DefaultRoleResponse{
		JWT:          switchResp.JWT,
		Tenant:       switchResp.Tenant,
		TenantType:   switchResp.TenantType,
		FeatureRoles: switchResp.FeatureRoles,
	}
	if roleResp.TenantType == "" {
		roleResp.TenantType = prev.TenantType
	}
	if roleResp.FeatureRoles == nil {
		roleResp.FeatureRoles = prev.FeatureRoles
	}
	if roleResp.Tenant == "" && prev.Profile != nil {
		roleResp.Tenant = prev.Profile.Tenant
	}

	profile := buildUserProfile(&profileResp, &roleResp)
	if switchResp.RoleID != "" {
		profile.RoleID = switchResp.RoleID
		profile.RoleName = roleName(profile.Roles, switchResp.RoleID)
	}
	rules := DeriveAbilityRules(roleResp.FeatureRoles)

	snap := Snapshot{
		AccessToken:  switchResp.JWT,
		Profile:      profile,
		AbilityRules: rules,
		TenantType:   roleResp.TenantType,
		FeatureRoles: roleResp.FeatureRoles,
	}
	if err := a.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	a.logger.Info("role switched", "role", profile.RoleName)

	return &LoginResult{
		Profile:      profile,
		AbilityRules: rules,
		TenantType:   roleResp.TenantType,
		FeatureRoles: roleResp.FeatureRoles,
	}, nil
}

// IsAuthenticated reports whether a session token is currently stored.
func (a *AuthService) IsAuthenticated(ctx context.Context) bool {
	token, err := a.store.AccessToken(ctx)
	return err == nil && token != ""
}

// StoredUser returns the persisted snapshot for session-state queries.
func (a *AuthService) StoredUser(ctx context.Context) (Snapshot, error) {
	return a.store.Load(ctx)
}

// DeriveAbilityRules maps granted feature identifiers to ability rules, one
// per feature with the action fixed to "manage".
func DeriveAbilityRules(featureRoles []string) []AbilityRule {
	rules := make([]AbilityRule, 0, len(featureRoles))
	for _, feature := range featureRoles {
		rules = append(rules, AbilityRule{Action: "manage", Subject: feature})
	}
	return rules
}

// buildUserProfile merges the profile payload with the role-resolution
// metadata into the session-scoped profile snapshot.
func buildUserProfile(profile *ProfileResponse, role *DefaultRoleResponse) *UserProfile {
	return &UserProfile{
		ID:         profile.UserID,
		Username:   profile.Username,
		Name:       profile.Name,
		Email:      profile.Email,
		Tenant:     role.Tenant,
		TenantType: role.TenantType,
		RoleID:     profile.DefaultRole,
		RoleName:   roleName(profile.Roles, profile.DefaultRole),
		Roles:      profile.Roles,
		Status:     profile.Status,
		LastLogin:  profile.LastLogin,
	}
}

func roleName(roles []Role, roleID string) string {
	for _, r := range roles {
		if r.ID == roleID {
			return r.Name
		}
	}
	return ""
}

// wrapLoginError keeps taxonomy errors intact and wraps everything else as
// ErrLoginFailed so callers always get a classifiable failure.
func wrapLoginError(err error) error {
	var (
		validationErr *ValidationError
		authErr       *AuthError
		apiErr        *APIError
		netErr        *NetworkError
	)
	if errors.As(err, &validationErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &apiErr) ||
		errors.As(err, &netErr) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLoginFailed, err)
}

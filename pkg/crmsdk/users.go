package crmsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const tenantCacheKey = "tenants"

// UserService wraps the admin user and permission endpoints plus the tenant
// lookup. The tenant list changes rarely, so it is held in a short-TTL
// in-process cache.
type UserService struct {
	crm   *Client
	cache *gocache.Cache
}

// NewUserService creates a UserService over the primary CRM client.
func NewUserService(crm *Client) *UserService {
	return &UserService{
		crm:   crm,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// FetchUser returns the admin view of a user. The endpoint wraps its data
// in a resultCode envelope; resultCode 1 means success.
func (s *UserService) FetchUser(ctx context.Context, userID string) (*AdminUser, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}

	var envelope resultEnvelope
	if err := s.crm.Get(ctx, "/admin/user/"+userID, &envelope); err != nil {
		return nil, err
	}
	if envelope.ResultCode != 1 || envelope.Data == nil {
		return nil, &APIError{MessageKey: "user_fetch_failed", Message: envelope.Message}
	}

	var user AdminUser
	if err := json.Unmarshal(envelope.Data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// UpdateUser patches a user's mutable fields.
func (s *UserService) UpdateUser(ctx context.Context, userID string, update AdminUserUpdate) (*AdminUser, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}

	var envelope resultEnvelope
	if err := s.crm.Patch(ctx, "/admin/user/"+userID, update, &envelope); err != nil {
		return nil, err
	}
	if envelope.ResultCode != 1 {
		return nil, &APIError{MessageKey: "user_update_failed", Message: envelope.Message}
	}

	var user AdminUser
	if envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, &user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
	}
	return &user, nil
}

// FetchTenants returns all tenants. The response is a plain array; results
// are cached for a few minutes.
func (s *UserService) FetchTenants(ctx context.Context) ([]Tenant, error) {
	if cached, ok := s.cache.Get(tenantCacheKey); ok {
		return cached.([]Tenant), nil
	}

	var tenants []Tenant
	if err := s.crm.Get(ctx, "/common/tenant", &tenants); err != nil {
		return nil, err
	}

	s.cache.SetDefault(tenantCacheKey, tenants)
	return tenants, nil
}

// FetchFeaturePermissions returns the feature grid for one role type. A
// response of an unexpected shape degrades to an empty result rather than
// failing the caller.
func (s *UserService) FetchFeaturePermissions(ctx context.Context, userID, roleType string) ([]FeatureDomain, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}
	if roleType == "" {
		return nil, &ValidationError{Field: "roleType", Message: "role type is required"}
	}

	var domains []FeatureDomain
	if err := s.crm.Get(ctx, "/admin/user/"+userID+"/permission/features/"+roleType, &domains); err != nil {
		return nil, err
	}
	if domains == nil {
		s.crm.logger.Warn("feature permissions response had no domains", "role_type", roleType)
		return []FeatureDomain{}, nil
	}
	return domains, nil
}

// FetchDataPermissions returns which customers a role type can see. The
// endpoint answers in two shapes: a resultCode envelope or a bare customer
// array; both normalise into DataPermissions, and anything else degrades to
// an empty result.
func (s *UserService) FetchDataPermissions(ctx context.Context, userID, roleType string) (*DataPermissions, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}
	if roleType == "" {
		return nil, &ValidationError{Field: "roleType", Message: "role type is required"}
	}

	var raw json.RawMessage
	if err := s.crm.Get(ctx, "/admin/user/"+userID+"/permission/data/"+roleType, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		ResultCode int              `json:"resultCode"`
		Data       *DataPermissions `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.ResultCode == 1 && envelope.Data != nil {
		perms := *envelope.Data
		if perms.Customers == nil {
			perms.Customers = []Customer{}
		}
		if perms.SelectedCustomers == nil {
			perms.SelectedCustomers = []string{}
		}
		return &perms, nil
	}

	var customers []Customer
	if err := json.Unmarshal(raw, &customers); err == nil && customers != nil {
		return &DataPermissions{Customers: customers, SelectedCustomers: []string{}}, nil
	}

	return &DataPermissions{Customers: []Customer{}, SelectedCustomers: []string{}}, nil
}

// UpdatePermissions patches the permission set for one role type.
func (s *UserService) UpdatePermissions(ctx context.Context, userID, roleType string, permissions any) error {
	if userID == "" {
		return &ValidationError{Field: "userId", Message: "user id is required"}
	}
	if roleType == "" {
		return &ValidationError{Field: "roleType", Message: "role type is required"}
	}

	var envelope resultEnvelope
	if err := s.crm.Patch(ctx, "/admin/user/"+userID+"/permission/"+roleType, permissions, &envelope); err != nil {
		return err
	}
	if envelope.ResultCode != 1 {
		return &APIError{MessageKey: "permission_update_failed", Message: envelope.Message}
	}
	return nil
}

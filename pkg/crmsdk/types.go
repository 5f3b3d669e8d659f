package crmsdk

import "encoding/json"

// ============================================================================
// Token Endpoint Types
// ============================================================================

// TokenResponse represents the identity provider's token endpoint response.
// Both the password and refresh_token grants return this shape.
type TokenResponse struct {
	// AccessToken is the opaque access token issued by the identity provider
	AccessToken string `json:"access_token"`

	// IDToken is the identity token carrying the subject claim
	IDToken string `json:"id_token"`

	// RefreshToken can be exchanged for a new token pair
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer"
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`
}

// ============================================================================
// Role Resolution Types
// ============================================================================

// DefaultRoleResponse is returned by GET /user/{username}/default-role.
// It carries the backend-issued session JWT together with the tenant and
// feature metadata for the user's default role.
type DefaultRoleResponse struct {
	// JWT is the backend session credential required on subsequent calls
	JWT string `json:"jwt"`

	// Tenant is the account the user belongs to
	Tenant string `json:"tenant"`

	// TenantType classifies the account (e.g. internal/external/admin)
	TenantType string `json:"tenantType"`

	// FeatureRoles are the feature identifiers granted to the role
	FeatureRoles []string `json:"featureRoles"`
}

// SwitchRoleResponse is returned by POST /user/switch-role.
type SwitchRoleResponse struct {
	JWT          string   `json:"jwt"`
	Tenant       string   `json:"tenant,omitempty"`
	TenantType   string   `json:"tenantType,omitempty"`
	FeatureRoles []string `json:"featureRoles,omitempty"`
	RoleID       string   `json:"roleId,omitempty"`
}

// ============================================================================
// Profile Types
// ============================================================================

// Role is a role the user may assume.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProfileResponse is the raw GET /user/profile payload.
type ProfileResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	DefaultRole string `json:"defaultRole"`
	Roles       []Role `json:"roles"`
	Status      string `json:"status"`
	LastLogin   string `json:"lastLogin"`
}

// UserProfile is the session-scoped profile snapshot built during role
// resolution. It is immutable until the next login or role switch.
type UserProfile struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Tenant     string `json:"tenant"`
	TenantType string `json:"tenantType"`

	// RoleID references an element of Roles
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName"`
	Roles    []Role `json:"roles"`

	Status    string `json:"status"`
	LastLogin string `json:"lastLogin"`
}

// HasRole reports whether roleID is one of the profile's roles.
func (p *UserProfile) HasRole(roleID string) bool {
	for _, r := range p.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// AbilityRule gates a feature in the UI layer. Rules are derived
// deterministically from the granted feature identifiers: one rule per
// feature with the action fixed to "manage".
type AbilityRule struct {
	Action  string `json:"action"`
	Subject string `json:"subject"`
}

// ============================================================================
// Tenant Types
// ============================================================================

// Tenant is one entry of the GET /common/tenant response.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ============================================================================
// Invoice Types
// ============================================================================

// Attachment identifies a backend record whose files can be listed through
// the file service.
type Attachment struct {
	TableName string `json:"tableName"`
	RecordID  string `json:"recordId"`
}

// Invoice is a single invoice as returned by the CRM backend.
type Invoice struct {
	ID            string       `json:"id"`
	InvoiceNumber string       `json:"invoiceNumber"`
	CustomerName  string       `json:"customerName"`
	Amount        float64      `json:"amount"`
	Currency      string       `json:"currency"`
	Status        string       `json:"status"`
	IssuedDate    string       `json:"issuedDate"`
	DueDate       string       `json:"dueDate"`
	Note          string       `json:"note,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
}

// InvoicePage is one page of an invoice listing.
type InvoicePage struct {
	Items []Invoice `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
}

// invoiceActionRequest is the accept/revise action body. Note is a pointer
// so a confirm action serialises as {"note": null}, matching the backend.
type invoiceActionRequest struct {
	Note *string `json:"note"`
}

// ============================================================================
// Admin / Permission Types
// ============================================================================

// resultEnvelope is the resultCode/message/data wrapper some admin endpoints
// use. resultCode 1 means success.
type resultEnvelope struct {
	ResultCode int             `json:"resultCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// AdminUser is the admin view of a portal user.
type AdminUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	Tenant      string `json:"tenant"`
	DefaultRole string `json:"defaultRole"`
	Roles       []Role `json:"roles,omitempty"`
}

// AdminUserUpdate carries the mutable AdminUser fields for PATCH.
type AdminUserUpdate struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status,omitempty"`
	DefaultRole string `json:"defaultRole,omitempty"`
}

// Feature is a single toggleable capability within a feature domain.
type Feature struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// FeatureDomain groups the features of one functional area.
type FeatureDomain struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AvailableFeatures []Feature `json:"availableFeatures"`
}

// Customer is a customer account referenced by data permissions.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DataPermissions lists the customers a role may see and which of them are
// currently selected.
type DataPermissions struct {
	Customers         []Customer `json:"customers"`
	SelectedCustomers []string   `json:"selectedCustomers"`
}

// ============================================================================
// File Service Types
// ============================================================================

// FileEntry describes one stored file. TableName, RecordID and DownloadURL
// are filled in by the SDK when flattening the file-list response.
type FileEntry struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`

	TableName   string `json:"-"`
	RecordID    string `json:"-"`
	DownloadURL string `json:"-"`
}

// fileListResponse is the nested POST /file/list payload:
// tableName -> recordId -> files.
type fileListResponse struct {
	Data map[string]map[string][]FileEntry `json:"data"`
}

// fileDownloadResponse is the GET /file/download payload. Content is
// base64-encoded.
type fileDownloadResponse struct {
	Data struct {
		FileName string `json:"fileName"`
		Content  string `json:"content"`
		MimeType string `json:"mimeType"`
	} `json:"data"`
}

// FileContent is a downloaded file with its content decoded.
type FileContent struct {
	FileName string
	MimeType string
	Bytes    []byte
}

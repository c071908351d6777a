package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenPurpose identifies what a persisted user token is good for.
type TokenPurpose = string

const (
	// PurposeAccountValidation activates a freshly registered account.
	PurposeAccountValidation TokenPurpose = "ACCOUNT_VALIDATION"
	// PurposePasswordReset authorizes a single password change.
	PurposePasswordReset TokenPurpose = "PASSWORD_RESET"
	// PurposeSessionRefresh backs the refresh-token rotation flow.
	PurposeSessionRefresh TokenPurpose = "SESSION_REFRESH"
)

const (
	// RoleGuest is resolved for unauthenticated callers.
	RoleGuest = "guest"
	// RoleDefault is granted when an account is activated.
	RoleDefault = "user"
)

// Capability names gating the password recovery flow.
const (
	ModulePasswordRecovery         = "USER_ACCOUNT_PASSWORD_RECOVERY"
	PermissionPasswordResetRequest = "PASSWORD_RECOVERY_LINK_REQUEST_OWN"
	PermissionPasswordResetExecute = "PASSWORD_RECOVERY_RESET_OWN"
)

// User is the credential record. Accounts start inactive and are activated
// exactly once by consuming an ACCOUNT_VALIDATION token during sign-in.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	Roles []*Role `bun:"m2m:user_role_links,join:User=Role" json:"roles,omitempty"`
}

// UserToken is a persisted single-purpose token. The repository keeps at most
// one live row per (user, purpose); issuing a replacement deletes prior rows
// in the same transaction.
type UserToken struct {
	bun.BaseModel `bun:"table:user_tokens,alias:utk"`
	ID            uuid.UUID    `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User        `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Token         string       `bun:"token,notnull" json:"-"`
	Purpose       TokenPurpose `bun:"purpose,notnull" json:"purpose,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Role groups modules and permissions. Shared reference data, assigned to
// users through UserRoleLink rows.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name,omitempty"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`

	Modules     []*Module     `bun:"m2m:role_module_links,join:Role=Module" json:"modules,omitempty"`
	Permissions []*Permission `bun:"m2m:role_permission_links,join:Role=Permission" json:"permissions,omitempty"`
}

// Module is a named capability area.
type Module struct {
	bun.BaseModel `bun:"table:modules,alias:mod"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name,omitempty"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`
}

// Permission is a named capability. When it references a module it is only
// live while that module is active.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:prm"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	ModuleID      *uuid.UUID `bun:"module_id,nullzero,type:uuid" json:"module_id,omitempty"`
	Module        *Module    `bun:"rel:belongs-to,join:module_id=id" json:"module,omitempty"`
}

// UserRoleLink assigns a role to a user.
type UserRoleLink struct {
	bun.BaseModel `bun:"table:user_role_links,alias:url"`
	UserID        uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User          *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	RoleID        uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// RoleModuleLink attaches a module to a role.
type RoleModuleLink struct {
	bun.BaseModel `bun:"table:role_module_links,alias:rml"`
	RoleID        uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	ModuleID      uuid.UUID `bun:"module_id,pk,type:uuid" json:"module_id,omitempty"`
	Module        *Module   `bun:"rel:belongs-to,join:module_id=id" json:"module,omitempty"`
}

// RolePermissionLink attaches a permission to a role.
type RolePermissionLink struct {
	bun.BaseModel `bun:"table:role_permission_links,alias:rpl"`
	RoleID        uuid.UUID   `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role          *Role       `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	PermissionID  uuid.UUID   `bun:"permission_id,pk,type:uuid" json:"permission_id,omitempty"`
	Permission    *Permission `bun:"rel:belongs-to,join:permission_id=id" json:"permission,omitempty"`
}

// UserPreference holds per-user settings, created with defaults on activation.
type UserPreference struct {
	bun.BaseModel `bun:"table:user_preferences,alias:upr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Locale        string     `bun:"locale,notnull" json:"locale,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// DefaultLocale is applied to preferences created during activation.
const DefaultLocale = "EN"

// RegisterModels registers the m2m join models bun needs before any relation
// query runs. Call once per bun.DB.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*UserRoleLink)(nil),
		(*RoleModuleLink)(nil),
		(*RolePermissionLink)(nil),
	)
}

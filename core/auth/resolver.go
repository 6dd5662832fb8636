// Package auth resolves caller emails to roles and permission sets.
// There is no session protocol here; role records are externally
// administered and this side only reads them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"sentinel-desk/core/rbac"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

// ErrEmailRequired is the only hard validation failure in resolution:
// a missing or blank email. Everything else degrades to the user role.
var ErrEmailRequired = errors.New("email is required")

// LookupError marks a role-store failure, distinguishable from a
// missing record. The caller surfaces it as a server-side failure.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return "role lookup failed"
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

type Identity struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IsITTeam    bool     `json:"isITTeam"`
	IsAdmin     bool     `json:"isAdmin"`
}

type Resolver struct {
	store  store.RoleRecordsStore
	policy *rbac.Policy
	logger *utils.Logger
}

func NewResolver(rs store.RoleRecordsStore, policy *rbac.Policy, logger *utils.Logger) *Resolver {
	return &Resolver{store: rs, policy: policy, logger: logger}
}

// Resolve maps an email to its role and permission set. Unknown emails
// resolve to the user role with the minimal default grants; unparsable
// stored permissions fall back to the role default table. Only an
// empty email or a store failure returns an error.
func (r *Resolver) Resolve(ctx context.Context, email string) (*Identity, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return nil, ErrEmailRequired
	}
	rec, err := r.store.GetByEmail(ctx, key)
	if err != nil {
		if r.logger != nil {
			r.logger.Errorf("role lookup %s: %v", key, err)
		}
		return nil, &LookupError{Err: err}
	}
	if rec == nil {
		return &Identity{
			UserID:      key,
			Email:       key,
			Role:        rbac.RoleUser,
			Permissions: rbac.DefaultPermissions(rbac.RoleUser),
		}, nil
	}
	role := rbac.NormalizeRole(rec.Role)
	perms := parsePermissions(rec.Permissions)
	if len(perms) == 0 {
		perms = r.defaultPermissions(role)
	}
	userID := strings.TrimSpace(rec.UserID)
	if userID == "" {
		userID = key
	}
	return &Identity{
		UserID:      userID,
		Email:       key,
		Name:        rec.Name,
		Role:        role,
		Permissions: perms,
		IsITTeam:    rbac.IsITTeam(role),
		IsAdmin:     rbac.IsAdmin(role),
	}, nil
}

func (r *Resolver) defaultPermissions(role string) []string {
	if r.policy != nil {
		if perms := r.policy.PermissionsFor(role); len(perms) > 0 {
			return perms
		}
	}
	return rbac.DefaultPermissions(role)
}

// parsePermissions tolerates anything: a non-list or broken JSON value
// yields nil and the caller falls back to the role defaults.
func parsePermissions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil
	}
	var clean []string
	for _, p := range perms {
		if v := strings.TrimSpace(p); v != "" {
			clean = append(clean, v)
		}
	}
	return clean
}

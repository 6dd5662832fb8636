// Package rbac holds the role model for the request desk.
//
// Three roles exist: user, it-support and admin. it-support inherits
// everything user can do, admin inherits everything it-support can do.
// The grants are enforced through a casbin model so the permission set
// of a role is derived in one place and every fallback path resolves
// through the same table.
package rbac

import (
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleUser      = "user"
	RoleITSupport = "it-support"
	RoleAdmin     = "admin"
)

const modelText = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

var rolePolicies = [][2]string{
	{RoleUser, "request:create"},
	{RoleUser, "request:view-own"},
	{RoleITSupport, "request:view-all"},
	{RoleITSupport, "request:update-status"},
	{RoleITSupport, "request:comment"},
	{RoleAdmin, "request:delete"},
	{RoleAdmin, "user:manage"},
}

var roleInheritance = [][2]string{
	{RoleITSupport, RoleUser},
	{RoleAdmin, RoleITSupport},
}

type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, g := range roleInheritance {
		if _, err := e.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, err
		}
	}
	for _, p := range rolePolicies {
		if _, err := e.AddPolicy(p[0], p[1]); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role, permission string) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(NormalizeRole(role), permission)
	return err == nil && ok
}

// PermissionsFor returns the full grant set of a role including
// inherited grants, sorted for stable output.
func (p *Policy) PermissionsFor(role string) []string {
	if p == nil || p.enforcer == nil {
		return nil
	}
	rows, err := p.enforcer.GetImplicitPermissionsForUser(NormalizeRole(role))
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{}
	var perms []string
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if _, ok := seen[row[1]]; ok {
			continue
		}
		seen[row[1]] = struct{}{}
		perms = append(perms, row[1])
	}
	sort.Strings(perms)
	return perms
}

var defaultPolicy = mustPolicy()

func mustPolicy() *Policy {
	p, err := NewPolicy()
	if err != nil {
		panic("rbac: building default policy: " + err.Error())
	}
	return p
}

// DefaultPermissions is the single fallback table used whenever stored
// permissions are missing or unparsable. It never fails; an unknown
// role degrades to the user grant set.
func DefaultPermissions(role string) []string {
	return defaultPolicy.PermissionsFor(NormalizeRole(role))
}

func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleITSupport:
		return RoleITSupport
	default:
		return RoleUser
	}
}

func IsITTeam(role string) bool {
	r := NormalizeRole(role)
	return r == RoleITSupport || r == RoleAdmin
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}

// KnownRoles lists the closed role set, least privileged first.
func KnownRoles() []string {
	return []string{RoleUser, RoleITSupport, RoleAdmin}
}

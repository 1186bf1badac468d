package permission

import "sort"

// RoleFlags carries the role bits a user record exposes. Derivation depends
// on nothing else, so verifiers can recompute permission sets from token
// claims without a database round trip.
type RoleFlags struct {
	Admin     bool
	Moderator bool
	Creator   bool
	Verified  bool
}

// Role names, most privileged first
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleCreator   = "creator"
	RoleFan       = "fan"
)

// scopeGrants maps each requested scope to the permissions it can unlock.
// A permission is granted when its predicate passes for the user's flags.
var scopeGrants = map[string][]grant{
	"profile": {
		{perm: "profile:read", allowed: anyUser},
		{perm: "profile:write", allowed: anyUser},
	},
	"openid": {
		{perm: "profile:read", allowed: anyUser},
	},
	"email": {
		{perm: "email:read", allowed: anyUser},
	},
	"content": {
		{perm: "content:view", allowed: anyUser},
		{perm: "content:publish", allowed: func(f RoleFlags) bool { return f.Creator || f.Admin }},
		{perm: "content:monetize", allowed: func(f RoleFlags) bool { return f.Creator && f.Verified || f.Admin }},
	},
	"messages": {
		{perm: "messages:read", allowed: anyUser},
		{perm: "messages:send", allowed: anyUser},
		{perm: "messages:broadcast", allowed: func(f RoleFlags) bool { return f.Creator || f.Admin }},
	},
	"moderation": {
		{perm: "moderation:review", allowed: func(f RoleFlags) bool { return f.Moderator || f.Admin }},
		{perm: "moderation:suspend", allowed: func(f RoleFlags) bool { return f.Moderator || f.Admin }},
	},
	"admin": {
		{perm: "admin:clients", allowed: func(f RoleFlags) bool { return f.Admin }},
		{perm: "admin:users", allowed: func(f RoleFlags) bool { return f.Admin }},
	},
}

type grant struct {
	perm    string
	allowed func(RoleFlags) bool
}

func anyUser(RoleFlags) bool { return true }

// Derive computes the permission set for the given role flags and requested
// scopes. The result is sorted and contains no duplicates; identical inputs
// always produce identical output.
func Derive(flags RoleFlags, scopes []string) []string {
	set := make(map[string]struct{})
	for _, scope := range scopes {
		for _, g := range scopeGrants[scope] {
			if g.allowed(flags) {
				set[g.perm] = struct{}{}
			}
		}
	}

	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

// RoleName reduces role flags to the single most privileged role label
func RoleName(flags RoleFlags) string {
	switch {
	case flags.Admin:
		return RoleAdmin
	case flags.Moderator:
		return RoleModerator
	case flags.Creator:
		return RoleCreator
	default:
		return RoleFan
	}
}

// KnownScopes lists every scope the provider understands, sorted
func KnownScopes() []string {
	scopes := make([]string, 0, len(scopeGrants))
	for s := range scopeGrants {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}

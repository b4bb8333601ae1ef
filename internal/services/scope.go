package services

import (
	"slices"

	"github.com/go-authgate/consentgate/internal/models"
)

// Scope names a client may request. Each maps to one user field.
const (
	ScopeEmail       = "email"
	ScopeNickname    = "nickname"
	ScopeRole        = "role"
	ScopeMajor       = "major"
	ScopeAdmission   = "admission"
	ScopeGeneration  = "generation"
	ScopeIsGraduated = "isGraduated"
)

type fieldProjection struct {
	scope   string
	project func(u *models.User) any
}

// userProjections is the table of projectable user fields, keyed by scope.
var userProjections = []fieldProjection{
	{ScopeEmail, func(u *models.User) any { return u.Email }},
	{ScopeNickname, func(u *models.User) any { return u.Nickname }},
	{ScopeRole, func(u *models.User) any { return u.Role }},
	{ScopeMajor, func(u *models.User) any { return u.Major }},
	{ScopeAdmission, func(u *models.User) any { return u.Admission }},
	{ScopeGeneration, func(u *models.User) any { return u.Generation }},
	{ScopeIsGraduated, func(u *models.User) any { return u.IsGraduated }},
}

// KnownScopes lists every projectable scope in table order.
func KnownScopes() []string {
	out := make([]string, len(userProjections))
	for i, p := range userProjections {
		out[i] = p.scope
	}
	return out
}

// IsKnownScope reports whether scope has a projection.
func IsKnownScope(scope string) bool {
	return slices.Contains(KnownScopes(), scope)
}

// ProjectUser returns exactly the user fields named by scopes. Unknown scope
// names are ignored.
func ProjectUser(u *models.User, scopes []string) map[string]any {
	out := make(map[string]any, len(scopes))
	for _, p := range userProjections {
		if slices.Contains(scopes, p.scope) {
			out[p.scope] = p.project(u)
		}
	}
	return out
}

// ProjectField returns a single projected field.
func ProjectField(u *models.User, scope string) (any, bool) {
	for _, p := range userProjections {
		if p.scope == scope {
			return p.project(u), true
		}
	}
	return nil, false
}

// missingScopes returns the entries of requested absent from allowed, in
// request order.
func missingScopes(requested, allowed []string) []string {
	var missing []string
	for _, s := range requested {
		if !slices.Contains(allowed, s) {
			missing = append(missing, s)
		}
	}
	return missing
}

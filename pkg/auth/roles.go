package auth

import "strings"

// NormalizeRoles canonicalizes a loosely-shaped roles value into an ordered,
// deduplicated role slice. Accepted shapes:
//
//   - []string / []Role / []interface{}: kept in order, non-string and blank
//     entries dropped
//   - string: a single role, or several separated by commas
//   - nil or anything else: empty slice
//
// Insertion order is preserved and no role is ever granted implicitly.
func NormalizeRoles(value interface{}) []Role {
	switch v := value.(type) {
	case []Role:
		return dedupe(roleStrings(v))
	case []string:
		return dedupe(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return dedupe(out)
	case string:
		return dedupe(strings.Split(v, ","))
	default:
		return []Role{}
	}
}

func roleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func dedupe(values []string) []Role {
	seen := make(map[Role]struct{}, len(values))
	out := make([]Role, 0, len(values))
	for _, raw := range values {
		name := Role(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// HasAnyRole reports whether the caller holds at least one of the allowed roles
func HasAnyRole(held []Role, allowed ...Role) bool {
	for _, h := range held {
		for _, a := range allowed {
			if h == a {
				return true
			}
		}
	}
	return false
}

// ContainsRole reports whether the slice contains the role
func ContainsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the caller holds any role beyond baseline Engineer
func IsModerator(roles []Role) bool {
	return HasAnyRole(roles, RoleManager, RoleLead, RoleAdmin)
}

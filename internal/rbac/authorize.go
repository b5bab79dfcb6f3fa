package rbac

import "strings"

// Allowed is the one authorization predicate of the console. An empty
// requirement is always satisfied; otherwise the identity needs one of the
// listed permissions, the wildcard, or an overriding role.
func Allowed(identity *Identity, required []string) bool {
	normalized := normalizePermissions(required)
	if len(normalized) == 0 {
		return true
	}
	if identity == nil {
		return false
	}
	if identity.Role.Overrides() {
		return true
	}
	return hasAnyPermission(identity.Permissions, normalized)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.TrimSpace(strings.ToLower(p))] = struct{}{}
	}
	if _, ok := set[Wildcard]; ok {
		return true
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

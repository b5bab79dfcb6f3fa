package rbac

import "strings"

// NavItem is one sidebar entry.
type NavItem struct {
	Label       string
	Path        string
	Icon        string
	Permissions []string
	Active      bool
}

var menu = []NavItem{
	{Label: "Dashboard", Path: "/dashboard", Icon: "home"},
	{Label: "Users", Path: "/users", Icon: "users", Permissions: []string{PermUsersRead}},
	{Label: "Content", Path: "/content", Icon: "file-text", Permissions: []string{PermContentRead}},
	{Label: "Jobs", Path: "/jobs", Icon: "cpu", Permissions: []string{PermJobsRead}},
	{Label: "Analytics", Path: "/analytics", Icon: "bar-chart", Permissions: []string{PermAnalyticsRead}},
	{Label: "Billing", Path: "/billing", Icon: "credit-card", Permissions: []string{PermBillingRead}},
	{Label: "Security", Path: "/security", Icon: "shield", Permissions: []string{PermSecurityRead}},
	{Label: "Settings", Path: "/settings", Icon: "settings", Permissions: []string{PermSystemManage}},
}

// RoutePermissions returns the requirement declared for a top-level path.
func RoutePermissions(path string) []string {
	for _, item := range menu {
		if item.Path == path {
			return append([]string(nil), item.Permissions...)
		}
	}
	return nil
}

// Navigation returns the sidebar entries the identity may open, marking the
// one matching currentPath. It uses the same predicate as the guard.
func Navigation(identity *Identity, currentPath string) []NavItem {
	items := make([]NavItem, 0, len(menu))
	for _, item := range menu {
		if !Allowed(identity, item.Permissions) {
			continue
		}
		item.Active = isActive(item.Path, currentPath)
		items = append(items, item)
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if currentPath == itemPath {
		return true
	}
	if itemPath == "/dashboard" {
		return currentPath == "/"
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

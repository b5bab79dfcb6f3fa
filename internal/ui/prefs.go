package ui

import (
	"net/http"
	"strings"

	"github.com/contentforge/admin-console/internal/shared"
)

// Theme is the colour scheme of the shell.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// ColorSchemeHeader is the client hint carrying the platform preference.
const ColorSchemeHeader = "Sec-CH-Prefers-Color-Scheme"

const (
	sidebarKey     = "ui_sidebar_collapsed"
	themeKey       = "ui_theme"
	themeChoiceKey = "ui_theme_choice"
)

// Prefs is the shell state kept in the operator session.
type Prefs struct {
	SidebarCollapsed bool
	// Theme is always light or dark.
	Theme Theme
	// Choice is what the operator picked, possibly auto.
	Choice Theme
}

// ParseTheme validates a theme name.
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeAuto:
		return ThemeAuto, nil
	default:
		return "", &shared.ValidationError{Field: "theme", Message: "Unknown theme " + value}
	}
}

// LoadPrefs reads the preferences from the session.
func LoadPrefs(sess *shared.Session) Prefs {
	prefs := Prefs{Theme: ThemeLight, Choice: ThemeLight}
	if sess == nil {
		return prefs
	}
	prefs.SidebarCollapsed = sess.Get(sidebarKey) == "1"
	if theme := Theme(sess.Get(themeKey)); theme == ThemeDark || theme == ThemeLight {
		prefs.Theme = theme
	}
	if choice := Theme(sess.Get(themeChoiceKey)); choice != "" {
		prefs.Choice = choice
	} else {
		prefs.Choice = prefs.Theme
	}
	return prefs
}

// ToggleSidebar flips the collapsed flag and returns the new value.
func ToggleSidebar(sess *shared.Session) bool {
	collapsed := sess.Get(sidebarKey) != "1"
	if collapsed {
		sess.Set(sidebarKey, "1")
	} else {
		sess.Set(sidebarKey, "0")
	}
	return collapsed
}

// SetTheme stores the choice. Auto is resolved once against the request's
// colour scheme hint; later changes of the platform setting are not followed.
func SetTheme(sess *shared.Session, choice Theme, r *http.Request) Theme {
	resolved := choice
	if choice == ThemeAuto {
		resolved = PreferredScheme(r)
	}
	sess.Set(themeKey, string(resolved))
	sess.Set(themeChoiceKey, string(choice))
	return resolved
}

// PreferredScheme reads the platform colour scheme of the request.
func PreferredScheme(r *http.Request) Theme {
	if r == nil {
		return ThemeLight
	}
	hint := strings.Trim(strings.ToLower(r.Header.Get(ColorSchemeHeader)), `" `)
	if hint == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

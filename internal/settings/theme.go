package settings

import (
	"fmt"
	"sync"

	"github.com/car-storefront-api/internal/models"
)

// CSSTheme keeps the primary brand color as a CSS custom property
type CSSTheme struct {
	mu    sync.RWMutex
	color string
}

// NewCSSTheme creates a theme starting at the default brand color
func NewCSSTheme() *CSSTheme {
	return &CSSTheme{color: models.DefaultSiteSettings().PrimaryColor}
}

// SetPrimaryColor applies color. Anything that is not a hex color resets
// to the default.
func (t *CSSTheme) SetPrimaryColor(color string) {
	if !isHexColor(color) {
		color = models.DefaultSiteSettings().PrimaryColor
	}
	t.mu.Lock()
	t.color = color
	t.mu.Unlock()
}

// PrimaryColor returns the applied color
func (t *CSSTheme) PrimaryColor() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.color
}

// CSS renders the stylesheet served at /theme.css
func (t *CSSTheme) CSS() string {
	return fmt.Sprintf(":root {\n  --primary-color: %s;\n}\n", t.PrimaryColor())
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

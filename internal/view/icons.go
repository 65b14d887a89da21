package view

import (
	"html/template"
	"strings"
)

type iconAsset struct {
	Key string
	SVG string
}

const iconOpen = `<svg class="icon" viewBox="0 0 24 24" width="20" height="20" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true">`

var (
	iconDefinitions = []iconAsset{
		{Key: "calendar", SVG: iconOpen + `<rect x="3" y="4" width="18" height="18" rx="2" ry="2"/><line x1="16" y1="2" x2="16" y2="6"/><line x1="8" y1="2" x2="8" y2="6"/><line x1="3" y1="10" x2="21" y2="10"/></svg>`},
		{Key: "user", SVG: iconOpen + `<path d="M20 21v-2a4 4 0 0 0-4-4H8a4 4 0 0 0-4 4v2"/><circle cx="12" cy="7" r="4"/></svg>`},
		{Key: "clock", SVG: iconOpen + `<circle cx="12" cy="12" r="10"/><polyline points="12 6 12 12 16 14"/></svg>`},
	}
	iconLookup = func() map[string]iconAsset {
		lookup := make(map[string]iconAsset, len(iconDefinitions))
		for _, icon := range iconDefinitions {
			lookup[icon.Key] = icon
		}
		return lookup
	}()
)

// IconSVG resolves the inline SVG for key. Unknown keys render nothing.
func IconSVG(key string) template.HTML {
	icon, ok := iconLookup[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return ""
	}
	return template.HTML(icon.SVG)
}

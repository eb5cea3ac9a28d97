package ops

import (
	"strings"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/errors"
)

// History list limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 1000
)

// ResolveProject returns the normalized project name, falling back to the
// configured default. Project names are case-insensitive.
func ResolveProject(project string, cfg *config.Config) (string, error) {
	p := normalizeProject(project)
	if p == "" && cfg != nil {
		p = normalizeProject(cfg.DefaultProject)
	}
	if p == "" {
		return "", errors.NewInvalidRequest("project is required (or set default_project in config)")
	}
	if strings.ContainsAny(p, "/\\") {
		return "", errors.NewInvalidRequest("project must not contain path separators")
	}
	return p, nil
}

func normalizeProject(p string) string {
	return strings.ToLower(strings.Join(strings.Fields(p), "-"))
}

// clampLimit applies the default when limit is unset and caps it at maxLimit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

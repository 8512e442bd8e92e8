package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by
// [lo, hi], falling back to def when it is absent or blank.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be an integer").
			WithDetails(map[string]any{"field": key})
	case value < lo || value > hi:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" is out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return value, nil
}

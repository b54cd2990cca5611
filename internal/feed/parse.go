package feed

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/catalog-sync/internal/model"
)

// parseIntOr parses s as an integer, returning def if s is empty or invalid.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Quantities occasionally arrive as "12.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return def
		}
		return int(f)
	}
	return v
}

// parseFloat64Or parses a price or measurement, tolerating "$" and ",".
func parseFloat64Or(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// parseBoolYN returns true if s is "Y" (case-insensitive).
func parseBoolYN(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Y")
}

// parseDate reads the vendor's YYYYMMDD dates. Zero on failure.
func parseDate(s string) time.Time {
	t, err := time.Parse("20060102", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseLifecycle decodes the lifecycle column, which carries either a
// single-letter code or the full word.
func parseLifecycle(s string) model.Lifecycle {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.LifecycleActive
	}
	switch strings.ToUpper(s[:1]) {
	case "A":
		return model.LifecycleAllocated
	case "C":
		return model.LifecycleCloseout
	case "D":
		return model.LifecycleDeleted
	}
	return model.LifecycleActive
}

// trimQuotes removes surrounding double quotes from a field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// sanitizeUTF8 drops invalid UTF-8 byte sequences (the feed is mostly
// ASCII with stray Latin-1) so Postgres doesn't reject the row.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

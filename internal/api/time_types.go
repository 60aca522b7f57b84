package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stockroomapp/stockroom-server/internal/domain"
)

// parseCursor reads a modified_since value. Clients send either the
// ISO-8601 string they were given or epoch milliseconds. An empty value
// means "from the beginning".
func parseCursor(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}

	return nil, fmt.Errorf("cannot parse %q as a timestamp", raw)
}

// parseKinds reads a comma-separated entity_types value.
func parseKinds(raw string) ([]domain.EntityKind, error) {
	var names []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return domain.ParseEntityKinds(names)
}

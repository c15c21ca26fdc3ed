package handlers

import "time"

// dateLayout is the date-only format task_pending.go collects limit_date
// in; a bare "2024-03-01" rather than a full RFC3339 timestamp, since the
// conversational flow only ever asks "by when" in day granularity.
const dateLayout = "2006-01-02"

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func parseLimitDate(params map[string]any, key string) *time.Time {
	s := stringParam(params, key)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

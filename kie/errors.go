package kie

import "encoding/json"

// ErrorMessage digs a human-readable message out of the many error shapes
// the API returns, falling back to def.
func ErrorMessage(data any, def string) string {
	switch v := data.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		if s := firstString(v, "message", "msg"); s != "" {
			return s
		}
		switch e := v["error"].(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if s := firstString(e, "message", "msg"); s != "" {
				return s
			}
		}
		if s := firstString(v, "failMsg", "fail_msg", "reason", "failure_reason"); s != "" {
			return s
		}
		if errs, ok := v["errors"].([]any); ok && len(errs) > 0 {
			if first, ok := errs[0].(map[string]any); ok {
				if s := firstString(first, "message"); s != "" {
					return s
				}
			}
			if b, err := json.Marshal(errs); err == nil {
				return string(b)
			}
		}
	}
	return def
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

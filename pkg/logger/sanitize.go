package logger

import (
	"net/url"
	"sort"
	"strings"
)

// QueryParamKeys returns the sorted set of query-parameter names in a raw
// query string. Values are never logged.
func QueryParamKeys(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SanitizeQueryString checks if a query string contains sensitive parameters
// and returns true if the entire query string should be redacted.
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"token",
		"secret",
		"totp",
		"auth",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}

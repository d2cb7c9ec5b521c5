package bladerf

import (
	"strconv"
	"strings"
)

// Args is the key-value option set parsed from a device argument string.
// Consumers look up the keys they understand and ignore the rest.
type Args map[string]string

// ParseArgs splits a "key=value,key=value" device argument string. Empty
// entries are skipped; a bare key maps to the empty string; later duplicates
// win. The value grammar beyond this is up to the consumer.
func ParseArgs(s string) Args {
	args := make(Args)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		args[key] = strings.TrimSpace(value)
	}
	return args
}

// Has reports whether the key was present in the argument string.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Get returns the value for key, or def when absent.
func (a Args) Get(key, def string) string {
	if v, ok := a[key]; ok {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def when absent or malformed.
func (a Args) GetInt(key string, def int) int {
	v, ok := a[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool returns the boolean value for key, or def when absent or malformed.
func (a Args) GetBool(key string, def bool) bool {
	v, ok := a[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

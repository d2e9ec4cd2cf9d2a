// Package env reads process environment variables with fallbacks, for the
// few spots that need a value before the full config layer is loaded.
package env

import "os"

// Get returns the value of key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

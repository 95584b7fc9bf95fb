package env

import "os"

// Get reads key from the process environment. Unset and blank both
// fall back, since an empty export is never a usable value here.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

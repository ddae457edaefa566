// Package env reads plain environment variables for the few settings that
// live outside the PHARMACARE_ envconfig tree, such as the platform PORT.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

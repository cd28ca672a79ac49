// Package gen provides utility functions for generating values.
package gen

import "github.com/google/uuid"

// UUID generates a random UUIDv4 string.
func UUID() string {
	return uuid.NewString()
}

package utils

import "github.com/google/uuid"

// IsUUID reports whether s parses as a UUID. Path-param ids are checked up
// front so garbage ids become validation errors instead of DB round trips.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

package ids

import "github.com/google/uuid"

// Next returns a new globally unique row identity. Message ordering ties
// break on this string, so it must be stable once assigned.
func Next() string { return uuid.NewString() }

// Package jobs holds identifier and routing helpers shared by the
// generation controller and the HTTP surface.
package jobs

import "github.com/google/uuid"

// GenerateID returns a new random identifier with the given prefix.
// The prefix should include a trailing dash, e.g. "style-", "custom-".
func GenerateID(prefix string) string {
	return prefix + uuid.NewString()
}

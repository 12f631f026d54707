// Package chat computes canonical room identifiers for direct and group
// conversations. A direct room id is the same no matter which participant
// opens the chat, so both sides always subscribe to the same channel.
package chat

import (
	"fmt"
	"sort"
	"strings"

	"chat-server/models"
)

const groupPrefix = "group:"

// DirectRoom returns the canonical room id for a one-on-one chat between a
// and b. The id is symmetric: DirectRoom(a, b) == DirectRoom(b, a).
func DirectRoom(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("direct room: %w", models.ErrNotFound)
	}
	if a == b {
		return "", models.ErrSelfChat
	}
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1], nil
}

// GroupRoom returns the room id for a group chat. Existence of the group is
// checked by the caller against the store.
func GroupRoom(groupID string) string {
	return groupPrefix + groupID
}

// ParseGroupRoom extracts the group id from a group room id.
func ParseGroupRoom(room string) (string, bool) {
	if !strings.HasPrefix(room, groupPrefix) {
		return "", false
	}
	return strings.TrimPrefix(room, groupPrefix), true
}

// Participants splits a direct room id back into its two usernames.
func Participants(room string) (string, string, bool) {
	parts := strings.SplitN(room, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// IsParticipant reports whether username is one of the two sides of a
// direct room.
func IsParticipant(room, username string) bool {
	a, b, ok := Participants(room)
	return ok && (a == username || b == username)
}

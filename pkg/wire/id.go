package wire

import "github.com/google/uuid"

// uuidString renders a 16-byte ID the same way gate renders player UUIDs,
// so log lines and admin-console output stay human-readable even though
// the wire identifier itself carries no UUID semantics.
func uuidString(id ID) string {
	return uuid.UUID(id).String()
}

// ParseID parses a canonical UUID string (as produced by ID.String, or as
// typed by an administrator) back into a 16-byte ID.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID(u), nil
}

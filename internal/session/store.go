package session

import "context"

// Store is the durable two-slot credential storage. The token and identity
// slots are always written together and cleared together; a Load returning
// only one of the two signals corruption the Manager resolves by clearing
// both.
type Store interface {
	// Load returns the stored token and serialized identity. Absent slots
	// come back as "" / nil with a nil error.
	Load(ctx context.Context) (token string, identity []byte, err error)
	// Save writes both slots.
	Save(ctx context.Context, token string, identity []byte) error
	// Clear removes both slots; clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

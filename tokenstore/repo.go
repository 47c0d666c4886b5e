package tokenstore

// Key is the logical name of the single persisted slot
const Key = "token"

// Store holds the backend session token. There is exactly one slot; Set
// replaces it and Clear empties it. Get returns "" when nothing is stored.
type Store interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

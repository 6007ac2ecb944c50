package store

import "fmt"

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open builds the store for backend. When sealer is non-nil every value is
// encrypted before it reaches the backend.
func Open(backend, path string, sealer Sealer) (Store, error) {
	var (
		s   Store
		err error
	)
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		s, err = NewFileStore(path)
	case BackendSQLite:
		s, err = OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	if sealer != nil {
		s = NewSealedStore(s, sealer)
	}
	return s, nil
}

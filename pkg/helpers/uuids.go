package helpers

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDv1 hands out time-ordered IDs for processes and campaigns.
type UUIDv1 struct {
	mu sync.Mutex
}

// IDGenerator creates and initializes a new UUIDv1
func IDGenerator() *UUIDv1 {
	return &UUIDv1{}
}

func (r *UUIDv1) Generate() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uuid.Must(uuid.NewUUID())
}

// ShortID is the first block of a generated ID, enough to tell log lines apart.
func (r *UUIDv1) ShortID() string {
	return r.Generate().String()[:8]
}

package manager

import (
	"sync"

	"github.com/google/uuid"
)

// NewClientID generates a stable worker identity for callers that do not
// track one of their own, mirroring the alert-history service's use of
// google/uuid for request-scoped identities.
func NewClientID() string {
	return uuid.NewString()
}

// ClientRegistry is the set of active worker identities, each reporting
// the most recent snapshot version it has observed (§3). A short map
// behind a mutex is adequate because the set is small (worker count) and
// membership churn is low (§9).
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[string]uint64 // client_id -> last_seen_version
}

func newClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]uint64)}
}

// Checkpoint registers clientID if new and records version as its
// last_seen_version. Idempotent.
func (r *ClientRegistry) Checkpoint(clientID string, version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[clientID] = version
}

// Leave removes clientID's record, if present. Idempotent.
func (r *ClientRegistry) Leave(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// Len reports the number of registered clients.
func (r *ClientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// MinVersion returns the lowest last_seen_version among registered
// clients, or headVersion if the registry is empty (§4.4 step 2).
func (r *ClientRegistry) MinVersion(headVersion uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) == 0 {
		return headVersion
	}
	min := headVersion
	first := true
	for _, v := range r.clients {
		if first || v < min {
			min = v
			first = false
		}
	}
	return min
}

// clear removes all client records (manager teardown).
func (r *ClientRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[string]uint64)
}

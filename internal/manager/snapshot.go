package manager

import "github.com/nullset-labs/filterd/internal/nameindex"

// NameSpaceSnapshot is an immutable-after-publish mapping from filter name
// to FilterEntry, tagged with a monotonic version and linked to its
// predecessor (§3). The one exception to immutability is deleted/
// deletedName, which are filled in on the *outgoing* head snapshot at the
// moment a removal supersedes it (§4.1 "Publishing a new snapshot") —
// always under the write-serialization lock, so no concurrent reader ever
// observes a partial write.
type NameSpaceSnapshot struct {
	version uint64
	index   *nameindex.Index[*FilterEntry]

	// deleted carries at most one retired FilterEntry handed off at the
	// moment this snapshot was superseded by a removal (drop or clear).
	deleted     *FilterEntry
	deletedName string

	predecessor *NameSpaceSnapshot
}

func newGenesisSnapshot() *NameSpaceSnapshot {
	return &NameSpaceSnapshot{
		version: 0,
		index:   nameindex.New[*FilterEntry](),
	}
}

// hasPendingDelete reports whether name carries a retirement anywhere in
// the predecessor chain rooted at s (§4.1 create's pending-delete scan).
// Callers must hold the vacuum-exclusion lock.
func (s *NameSpaceSnapshot) hasPendingDelete(name string) bool {
	for cur := s; cur != nil; cur = cur.predecessor {
		if cur.deleted != nil && cur.deletedName == name {
			return true
		}
	}
	return false
}

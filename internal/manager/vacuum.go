package manager

import "time"

// StartVacuum launches the background reclaimer at the given cadence
// (§4.4). It runs until Close is called. 1-second granularity is
// sufficient per §4.4; callers typically pass the configured Vacuum
// interval.
func (m *FilterManager) StartVacuum(interval time.Duration) {
	m.vacuumWG.Add(1)
	go func() {
		defer m.vacuumWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.runVacuumPass(false)
			}
		}
	}()
}

// runVacuumPass implements §4.4's algorithm. force=true (VacuumNow) uses
// head.version as the watermark instead of the client registry's minimum.
func (m *FilterManager) runVacuumPass(force bool) {
	head := m.head.Load()
	if head.predecessor == nil {
		return
	}

	var minVsn uint64
	if force {
		minVsn = head.version
	} else {
		minVsn = m.clients.MinVersion(head.version)
	}

	if m.warnThreshold > 0 && head.version-minVsn > m.warnThreshold {
		m.logger.Warn("vacuum: versions accumulating past threshold",
			"head_version", head.version,
			"min_vsn", minVsn,
			"warn_threshold", m.warnThreshold,
		)
	}

	m.vacuumMu.Lock()
	defer m.vacuumMu.Unlock()

	survivor := head
	cur := head.predecessor
	for cur != nil && cur.version >= minVsn {
		survivor = cur
		cur = cur.predecessor
	}
	if cur == nil {
		return
	}

	reclaimed := 0
	for s := cur; s != nil; {
		next := s.predecessor
		m.disposeSnapshot(s)
		reclaimed++
		s = next
	}
	survivor.predecessor = nil

	if reclaimed > 0 {
		m.metrics.VacuumReclaimed.Add(float64(reclaimed))
		m.logger.Debug("vacuum: reclaimed snapshots", "count", reclaimed, "min_vsn", minVsn)
	}
}

// disposeSnapshot reclaims a retired snapshot: its deleted entry (if any)
// is disposed per its should_delete flag, and its map is dropped.
// Callers must hold vacuumMu.
func (m *FilterManager) disposeSnapshot(s *NameSpaceSnapshot) {
	if s.deleted != nil {
		m.disposeEntry(s.deleted, s.deleted.shouldDelete.Load())
	}
	s.index = nil
	s.deleted = nil
}

// disposeEntry closes or deletes entry's payload depending on
// forceDelete, and releases its custom config.
func (m *FilterManager) disposeEntry(entry *FilterEntry, forceDelete bool) {
	var err error
	if forceDelete {
		err = entry.payload.Delete()
	} else {
		err = entry.payload.Close()
	}
	if err != nil {
		m.logger.Error("vacuum: payload disposal failed", "name", entry.payload.Name(), "error", err)
	}
	entry.customConfig = nil
}

// Close stops the vacuum goroutine, disposes every live entry (closing,
// never deleting), disposes every retired deletion still reachable from
// the chain, and clears the client registry (§4.4 "Termination").
// Idempotent.
func (m *FilterManager) Close() error {
	if m.shutdown.Swap(true) {
		return nil
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.vacuumWG.Wait()

	head := m.head.Load()
	head.index.Ascend(func(name string, entry *FilterEntry) bool {
		if err := entry.payload.Close(); err != nil {
			m.logger.Error("shutdown: payload close failed", "name", name, "error", err)
		}
		return true
	})

	for s := head; s != nil; s = s.predecessor {
		if s.deleted != nil {
			m.disposeEntry(s.deleted, s.deleted.shouldDelete.Load())
			s.deleted = nil
		}
	}

	m.clients.clear()
	return nil
}

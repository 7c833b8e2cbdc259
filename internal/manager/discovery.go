package manager

import (
	"os"
	"strings"
)

// discoveryPrefix is the fixed directory-name prefix Discovery scans for
// (§4.5, §6).
const discoveryPrefix = "bloomd."

// Discover performs the one-shot startup scan (§4.5, component F): every
// subdirectory of dataDir whose name begins with "bloomd." and has
// length > 7 is opened as a filter and added to the genesis snapshot,
// not_hot, with the manager's default configuration. Individual open
// failures are logged and skipped; Discover itself only fails if the
// directory scan fails. Must be called before StartVacuum, and only
// once, before any mutator runs.
func (m *FilterManager) Discover() error {
	entries, err := os.ReadDir(m.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	head := m.head.Load()
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		dirName := de.Name()
		if len(dirName) <= len(discoveryPrefix) || !strings.HasPrefix(dirName, discoveryPrefix) {
			continue
		}
		name := dirName[len(discoveryPrefix):]

		payload := m.newFilter(name)
		if err := payload.Open(filterDir(m.dataDir, name), m.defaultConfig); err != nil {
			m.logger.Error("discovery: failed to open filter", "name", name, "error", err)
			continue
		}

		entry := newFilterEntry(payload, nil)
		entry.isHot.Store(false)
		head.index.Set(name, entry)
	}
	return nil
}

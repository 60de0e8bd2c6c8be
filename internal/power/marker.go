package power

import (
	"os"
	"path/filepath"
	"time"
)

// Marker records that a cycle is in flight so an interrupted run can be
// detected at the next startup. It carries no data across cycles.
type Marker struct {
	path string
}

func NewMarker(dir string) *Marker {
	return &Marker{path: filepath.Join(dir, "cycle.inflight")}
}

// Arm reports whether the previous cycle ended without reaching sleep entry,
// then marks the current cycle as in flight.
func (m *Marker) Arm() bool {
	_, err := os.Stat(m.path)
	dirty := err == nil

	_ = os.MkdirAll(filepath.Dir(m.path), 0o755)
	_ = os.WriteFile(m.path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
	return dirty
}

// Clear removes the in-flight mark. Called at sleep entry on every orderly
// path, fatal or not.
func (m *Marker) Clear() {
	_ = os.Remove(m.path)
}

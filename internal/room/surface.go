// internal/room/surface.go
package room

import (
	"encoding/json"

	"github.com/skrawlhq/skrawl/internal/models"
)

// surface is the room's accepted stroke log, replayed to late joiners so
// their canvas converges with everyone else's. Not self-locking; the owning
// room's mutex guards it.
type surface struct {
	strokes []models.Stroke
}

// apply folds one accepted stroke into the log. A reset truncates the log
// entirely; replaying an empty log yields a blank canvas.
func (s *surface) apply(st models.Stroke) {
	if st.Action == models.StrokeReset {
		s.strokes = s.strokes[:0]
		return
	}
	s.strokes = append(s.strokes, st)
}

// snapshot returns a copy of the stroke log in acceptance order.
func (s *surface) snapshot() []models.Stroke {
	out := make([]models.Stroke, len(s.strokes))
	copy(out, s.strokes)
	return out
}

// blob serializes the log for external persistence. Empty logs serialize to
// nil so stores can treat them as deletions.
func (s *surface) blob() ([]byte, error) {
	if len(s.strokes) == 0 {
		return nil, nil
	}
	return json.Marshal(s.strokes)
}

// restore replaces the log with a previously persisted blob.
func (s *surface) restore(blob []byte) error {
	if len(blob) == 0 {
		s.strokes = nil
		return nil
	}
	var strokes []models.Stroke
	if err := json.Unmarshal(blob, &strokes); err != nil {
		return err
	}
	s.strokes = strokes
	return nil
}

package store

import (
	"time"

	"github.com/grovetools/queued/pkg/models"
)

// Stream converts an update into its wire form, attaching copies of the
// affected queues as they are now. Queues removed since the update are
// listed in Names only.
func (s *Store) Stream(u Update) models.StreamUpdate {
	out := models.StreamUpdate{
		Type:    string(u.Type),
		Source:  u.Source,
		Version: u.Version,
		Names:   u.Queues,
		Time:    time.Now(),
	}

	switch u.Type {
	case UpdateConfigReload:
		if file, ok := u.Payload.(string); ok {
			out.ConfigFile = file
		}
	case UpdateRemoved:
	default:
		for _, name := range u.Queues {
			if q, ok := s.Lookup(name); ok {
				out.Queues = append(out.Queues, q)
			}
		}
	}
	return out
}

// Initial returns a stream update carrying the whole store.
func (s *Store) Initial() models.StreamUpdate {
	out := models.StreamUpdate{Type: models.StreamInitial, Time: time.Now()}
	s.View(func(version uint64, queues []*models.Queue) {
		out.Version = version
		for _, q := range queues {
			out.Names = append(out.Names, q.Name)
			out.Queues = append(out.Queues, q.Clone())
		}
	})
	return out
}

package collector

import (
	"io"
	"strings"
	"sync"

	"github.com/grovetools/queued/internal/daemon/options"
	"github.com/grovetools/queued/internal/daemon/store"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type recordedEvent struct {
	topic, result string
}

type fakeRecorder struct {
	mu       sync.Mutex
	refresh  []error
	events   []recordedEvent
	commands []string
}

func (r *fakeRecorder) RefreshDone(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh = append(r.refresh, err)
}

func (r *fakeRecorder) EventHandled(topic, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{topic, result})
}

func (r *fakeRecorder) CommandDone(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, op)
}

func (r *fakeRecorder) results() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.result)
	}
	return out
}

// salesQueue returns a fresh "sales" queue with a SIP and a PJSIP member.
func salesQueue() *models.Queue {
	return &models.Queue{
		Name:             "sales",
		Strategy:         "ringall",
		ServiceLevelPerf: 80,
		Members: []*models.QueueMember{
			{Name: "Alice", Interface: "SIP/100", Status: models.StatusNotInUse},
			{Name: "Bob", Interface: "PJSIP/200", Status: models.StatusInUse},
		},
	}
}

func supportQueue() *models.Queue {
	return &models.Queue{
		Name:             "support",
		ServiceLevelPerf: 90,
		Members: []*models.QueueMember{
			{Name: "Carol", Interface: "SIP/300", Status: models.StatusNotInUse},
			{Name: "Dan", Interface: "SIP/301", Status: models.StatusBusy},
			{Name: "Eve", Interface: "Local/400@agents", Status: models.StatusNotInUse},
		},
	}
}

func newSync(p ami.Provider, opts options.Options) (*Synchronizer, *store.Store, *fakeRecorder) {
	st := store.New()
	rec := &fakeRecorder{}
	return NewSynchronizer(p, st, options.NewLive(opts), rec, testLogger()), st, rec
}

func sipOnly(m *models.QueueMember) bool {
	return strings.HasPrefix(m.Interface, "SIP/")
}

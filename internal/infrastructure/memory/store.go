package memory

import (
	"sync"
	"time"

	"github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/establishment"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

const defaultLeaseTTL = time.Minute

type rightKey struct {
	UserID   string
	AgencyID string
}

// Store is the in-memory persistence backend. One mutex guards every map,
// so a unit of work holding it sees and leaves a consistent snapshot.
//
// The Store itself implements the repository interfaces for reads and
// crawler operations outside any transaction; writes from use cases go
// through UnitOfWork, which stages them and commits atomically.
type Store struct {
	mu sync.RWMutex

	conventions    map[string]*convention.Convention
	agencies       map[string]*agency.Agency
	rights         map[rightKey]agency.UserRight
	establishments map[string]*establishment.Establishment

	events     map[string]*outbox.Event
	eventOrder []string
	leases     map[string]time.Time
	leaseTTL   time.Duration

	now func() time.Time

	failNextOutboxSave     error
	failNextConventionSave error
}

func NewStore() *Store {
	return &Store{
		conventions:    make(map[string]*convention.Convention),
		agencies:       make(map[string]*agency.Agency),
		rights:         make(map[rightKey]agency.UserRight),
		establishments: make(map[string]*establishment.Establishment),
		events:         make(map[string]*outbox.Event),
		leases:         make(map[string]time.Time),
		leaseTTL:       defaultLeaseTTL,
		now:            time.Now,
	}
}

// SetLeaseTTL overrides how long a fetched event stays invisible to
// subsequent crawl ticks.
func (s *Store) SetLeaseTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaseTTL = ttl
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextOutboxSave makes the next in-transaction event append fail with
// err, exercising the rollback path.
func (s *Store) FailNextOutboxSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextOutboxSave = err
}

// FailNextConventionSave makes the next in-transaction convention write
// fail with err.
func (s *Store) FailNextConventionSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextConventionSave = err
}

package memory

import (
	"context"
	"errors"

	"github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/establishment"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/domain/uow"
)

var errCrawlInTxn = errors.New("outbox: crawl operations are not available inside a transaction")

// UnitOfWork serializes transactions on the store's mutex and stages every
// write in an overlay. The overlay reaches the base maps only when fn
// returns nil; on error nothing is applied, so an aggregate write and its
// event appends commit together or not at all.
//
// Callbacks must use the Ports they are given; calling the store's direct
// views from inside Perform deadlocks on the held mutex.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Perform(ctx context.Context, fn func(ctx context.Context, p uow.Ports) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	t := newTxn(u.store)
	if err := fn(ctx, t.ports()); err != nil {
		return err
	}
	t.commit()
	return nil
}

// txn stages writes while reads fall through to the base maps. Staged
// writes shadow base state, so a transaction reads its own updates.
type txn struct {
	s *Store

	conventions    map[string]*convention.Convention
	agencies       map[string]*agency.Agency
	rights         map[rightKey]agency.UserRight
	establishments map[string]*establishment.Establishment
	events         []outbox.Event
	eventIDs       map[string]struct{}
}

func newTxn(s *Store) *txn {
	return &txn{
		s:              s,
		conventions:    make(map[string]*convention.Convention),
		agencies:       make(map[string]*agency.Agency),
		rights:         make(map[rightKey]agency.UserRight),
		establishments: make(map[string]*establishment.Establishment),
		eventIDs:       make(map[string]struct{}),
	}
}

func (t *txn) ports() uow.Ports {
	return uow.Ports{
		Conventions:    txConventions{t},
		Agencies:       txAgencies{t},
		Establishments: txEstablishments{t},
		Outbox:         txOutbox{t},
	}
}

func (t *txn) commit() {
	for id, conv := range t.conventions {
		t.s.conventions[id] = conv
	}
	for id, ag := range t.agencies {
		t.s.agencies[id] = ag
	}
	for key, right := range t.rights {
		t.s.rights[key] = right
	}
	for siret, est := range t.establishments {
		t.s.establishments[siret] = est
	}
	for _, e := range t.events {
		cp := e.Clone()
		t.s.events[e.ID] = &cp
		t.s.eventOrder = append(t.s.eventOrder, e.ID)
	}
}

type txConventions struct{ t *txn }

func (r txConventions) GetByID(ctx context.Context, id string) (*convention.Convention, error) {
	_ = ctx
	if conv, ok := r.t.conventions[id]; ok {
		return conv.Clone(), nil
	}
	return r.t.s.conventionByID(id)
}

func (r txConventions) Save(ctx context.Context, conv *convention.Convention) error {
	_ = ctx
	if conv == nil || conv.ID == "" {
		return convention.ErrMissingID
	}
	if err := r.t.s.failNextConventionSave; err != nil {
		r.t.s.failNextConventionSave = nil
		return err
	}
	r.t.conventions[conv.ID] = conv.Clone()
	return nil
}

type txAgencies struct{ t *txn }

func (r txAgencies) GetByID(ctx context.Context, id string) (*agency.Agency, error) {
	_ = ctx
	if ag, ok := r.t.agencies[id]; ok {
		cp := *ag
		return &cp, nil
	}
	return r.t.s.agencyByID(id)
}

func (r txAgencies) GetByIDs(ctx context.Context, ids []string) ([]*agency.Agency, error) {
	out := make([]*agency.Agency, 0, len(ids))
	for _, id := range ids {
		ag, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ag)
	}
	return out, nil
}

func (r txAgencies) Save(ctx context.Context, a *agency.Agency) error {
	_ = ctx
	if a == nil || a.ID == "" {
		return agency.ErrMissingID
	}
	cp := *a
	r.t.agencies[a.ID] = &cp
	return nil
}

func (r txAgencies) UserRight(ctx context.Context, userID, agencyID string) (agency.UserRight, error) {
	_ = ctx
	if right, ok := r.t.rights[rightKey{UserID: userID, AgencyID: agencyID}]; ok {
		right.Roles = append([]agency.Role(nil), right.Roles...)
		return right, nil
	}
	return r.t.s.userRight(userID, agencyID)
}

func (r txAgencies) SaveUserRight(ctx context.Context, right agency.UserRight) error {
	_ = ctx
	right.Roles = append([]agency.Role(nil), right.Roles...)
	r.t.rights[rightKey{UserID: right.UserID, AgencyID: right.AgencyID}] = right
	return nil
}

type txEstablishments struct{ t *txn }

func (r txEstablishments) GetBySiret(ctx context.Context, siret string) (*establishment.Establishment, error) {
	_ = ctx
	if est, ok := r.t.establishments[siret]; ok {
		cp := *est
		return &cp, nil
	}
	return r.t.s.establishmentBySiret(siret)
}

func (r txEstablishments) Save(ctx context.Context, est *establishment.Establishment) error {
	_ = ctx
	if _, staged := r.t.establishments[est.Siret]; staged {
		return establishment.ErrAlreadyExists
	}
	if _, exists := r.t.s.establishments[est.Siret]; exists {
		return establishment.ErrAlreadyExists
	}
	cp := *est
	r.t.establishments[est.Siret] = &cp
	return nil
}

type txOutbox struct{ t *txn }

func (r txOutbox) Save(ctx context.Context, e outbox.Event) error {
	_ = ctx
	if e.ID == "" {
		return outbox.ErrMissingID
	}
	if err := r.t.s.failNextOutboxSave; err != nil {
		r.t.s.failNextOutboxSave = nil
		return err
	}
	if _, staged := r.t.eventIDs[e.ID]; staged {
		return outbox.ErrAlreadyExists
	}
	if _, exists := r.t.s.events[e.ID]; exists {
		return outbox.ErrAlreadyExists
	}
	r.t.events = append(r.t.events, e.Clone())
	r.t.eventIDs[e.ID] = struct{}{}
	return nil
}

// FetchPending and MarkAsPublished belong to the crawler, which runs
// outside business transactions; inside one they are not available.
func (r txOutbox) FetchPending(ctx context.Context, limit int) ([]outbox.Event, error) {
	_, _ = ctx, limit
	return nil, errCrawlInTxn
}

func (r txOutbox) MarkAsPublished(ctx context.Context, id string, p outbox.Publication) error {
	_, _, _ = ctx, id, p
	return errCrawlInTxn
}

func (r txOutbox) GetByID(ctx context.Context, id string) (outbox.Event, error) {
	_ = ctx
	for i := range r.t.events {
		if r.t.events[i].ID == id {
			return r.t.events[i].Clone(), nil
		}
	}
	e, ok := r.t.s.events[id]
	if !ok {
		return outbox.Event{}, outbox.ErrEventNotFound
	}
	return e.Clone(), nil
}

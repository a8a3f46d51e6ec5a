package memory

import (
	"context"

	"github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/establishment"
)

// The store exposes one repository view per aggregate; the method sets
// would collide on a single receiver. Views operate outside any
// transaction and return clones, so callers never alias stored state.

func (s *Store) Conventions() convention.Repository       { return conventionView{s} }
func (s *Store) Agencies() agency.Repository              { return agencyView{s} }
func (s *Store) Establishments() establishment.Repository { return establishmentView{s} }

type conventionView struct{ s *Store }

func (v conventionView) GetByID(ctx context.Context, id string) (*convention.Convention, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.conventionByID(id)
}

func (s *Store) conventionByID(id string) (*convention.Convention, error) {
	conv, ok := s.conventions[id]
	if !ok {
		return nil, convention.ErrNotFound
	}
	return conv.Clone(), nil
}

func (v conventionView) Save(ctx context.Context, conv *convention.Convention) error {
	_ = ctx
	if conv == nil || conv.ID == "" {
		return convention.ErrMissingID
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.conventions[conv.ID] = conv.Clone()
	return nil
}

type agencyView struct{ s *Store }

func (v agencyView) GetByID(ctx context.Context, id string) (*agency.Agency, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.agencyByID(id)
}

func (s *Store) agencyByID(id string) (*agency.Agency, error) {
	ag, ok := s.agencies[id]
	if !ok {
		return nil, agency.ErrNotFound
	}
	cp := *ag
	return &cp, nil
}

func (v agencyView) GetByIDs(ctx context.Context, ids []string) ([]*agency.Agency, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*agency.Agency, 0, len(ids))
	for _, id := range ids {
		ag, err := v.s.agencyByID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, ag)
	}
	return out, nil
}

func (v agencyView) Save(ctx context.Context, a *agency.Agency) error {
	_ = ctx
	if a == nil || a.ID == "" {
		return agency.ErrMissingID
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *a
	v.s.agencies[a.ID] = &cp
	return nil
}

func (v agencyView) UserRight(ctx context.Context, userID, agencyID string) (agency.UserRight, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.userRight(userID, agencyID)
}

func (s *Store) userRight(userID, agencyID string) (agency.UserRight, error) {
	right, ok := s.rights[rightKey{UserID: userID, AgencyID: agencyID}]
	if !ok {
		return agency.UserRight{}, agency.ErrRightNotFound
	}
	right.Roles = append([]agency.Role(nil), right.Roles...)
	return right, nil
}

func (v agencyView) SaveUserRight(ctx context.Context, right agency.UserRight) error {
	_ = ctx
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.storeUserRight(right)
	return nil
}

func (s *Store) storeUserRight(right agency.UserRight) {
	right.Roles = append([]agency.Role(nil), right.Roles...)
	s.rights[rightKey{UserID: right.UserID, AgencyID: right.AgencyID}] = right
}

type establishmentView struct{ s *Store }

func (v establishmentView) GetBySiret(ctx context.Context, siret string) (*establishment.Establishment, error) {
	_ = ctx
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.establishmentBySiret(siret)
}

func (s *Store) establishmentBySiret(siret string) (*establishment.Establishment, error) {
	est, ok := s.establishments[siret]
	if !ok {
		return nil, establishment.ErrNotFound
	}
	cp := *est
	return &cp, nil
}

func (v establishmentView) Save(ctx context.Context, est *establishment.Establishment) error {
	_ = ctx
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, exists := v.s.establishments[est.Siret]; exists {
		return establishment.ErrAlreadyExists
	}
	cp := *est
	v.s.establishments[est.Siret] = &cp
	return nil
}

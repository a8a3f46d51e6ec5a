package agency

import "errors"

var (
	ErrNotFound      = errors.New("agency: not found")
	ErrRightNotFound = errors.New("agency: user has no rights on agency")
	ErrMissingID     = errors.New("agency: id is required")
	ErrMissingName   = errors.New("agency: name is required")
	ErrUnknownKind   = errors.New("agency: unknown kind")
)

type Kind string

const (
	KindPoleEmploi      Kind = "pole_emploi"
	KindMissionLocale   Kind = "mission_locale"
	KindCapEmploi       Kind = "cap_emploi"
	KindStructureIAE    Kind = "structure_iae"
	KindImmersionFacile Kind = "immersion_facile"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPoleEmploi, KindMissionLocale, KindCapEmploi, KindStructureIAE, KindImmersionFacile:
		return true
	}
	return false
}

// Agency prescribes immersion placements and validates their conventions.
// RequiresCounsellorReview agencies insert a counsellor step before final
// validation; PartnerBroadcast agencies have their validated conventions
// pushed to the external partner system.
type Agency struct {
	ID                       string
	Name                     string
	Kind                     Kind
	RequiresCounsellorReview bool
	PartnerBroadcast         bool
}

func New(id, name string, kind Kind) (*Agency, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if name == "" {
		return nil, ErrMissingName
	}
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	return &Agency{ID: id, Name: name, Kind: kind}, nil
}

// Role is what a user may do on behalf of an agency.
type Role string

const (
	RoleCounsellor  Role = "counsellor"
	RoleValidator   Role = "validator"
	RoleAgencyAdmin Role = "agency_admin"
)

// UserRight links one user to one agency with a set of roles.
type UserRight struct {
	UserID   string
	AgencyID string
	Roles    []Role
}

func (r UserRight) Has(role Role) bool {
	for _, got := range r.Roles {
		if got == role {
			return true
		}
	}
	return false
}

// Grant adds a role; granting an already-held role reports no change.
func (r *UserRight) Grant(role Role) bool {
	if r.Has(role) {
		return false
	}
	r.Roles = append(r.Roles, role)
	return true
}

package convention

import (
	"errors"
	"time"
)

var (
	ErrNotFound             = errors.New("convention: not found")
	ErrMissingID            = errors.New("convention: id is required")
	ErrMissingAgency        = errors.New("convention: agency id is required")
	ErrMissingSiret         = errors.New("convention: establishment siret is required")
	ErrMissingBeneficiary   = errors.New("convention: beneficiary signatory is required")
	ErrMissingEstablishment = errors.New("convention: establishment representative signatory is required")
)

// Status is the legal state of a convention. It is never set from client
// input; every change goes through the transition table.
type Status string

const (
	StatusDraft                Status = "DRAFT"
	StatusReadyToSign          Status = "READY_TO_SIGN"
	StatusPartiallySigned      Status = "PARTIALLY_SIGNED"
	StatusInReview             Status = "IN_REVIEW"
	StatusAcceptedByCounsellor Status = "ACCEPTED_BY_COUNSELLOR"
	StatusAcceptedByValidator  Status = "ACCEPTED_BY_VALIDATOR"
	StatusRejected             Status = "REJECTED"
	StatusCancelled            Status = "CANCELLED"
	StatusDeprecated           Status = "DEPRECATED"
)

// Terminal statuses have no outgoing edges; a convention reaching one is
// kept forever, never physically deleted.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusDeprecated:
		return true
	}
	return false
}

// SignatoryRole enumerates the parties to the agreement. Beneficiary and
// establishment representative are always required; the legal representative
// and current employer only exist on some conventions.
type SignatoryRole string

const (
	RoleBeneficiary                 SignatoryRole = "beneficiary"
	RoleEstablishmentRepresentative SignatoryRole = "establishment_representative"
	RoleLegalRepresentative         SignatoryRole = "legal_representative"
	RoleCurrentEmployer             SignatoryRole = "current_employer"
)

type Signatory struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	SignedAt *time.Time `json:"signedAt,omitempty"`
}

func (s Signatory) Signed() bool { return s.SignedAt != nil }

// Signatories is the fixed set of parties; optional roles are nil when the
// convention does not involve them.
type Signatories struct {
	Beneficiary                 Signatory  `json:"beneficiary"`
	EstablishmentRepresentative Signatory  `json:"establishmentRepresentative"`
	LegalRepresentative         *Signatory `json:"legalRepresentative,omitempty"`
	CurrentEmployer             *Signatory `json:"currentEmployer,omitempty"`
}

// AllSigned reports whether every party present on the convention signed.
func (s Signatories) AllSigned() bool {
	if !s.Beneficiary.Signed() || !s.EstablishmentRepresentative.Signed() {
		return false
	}
	if s.LegalRepresentative != nil && !s.LegalRepresentative.Signed() {
		return false
	}
	if s.CurrentEmployer != nil && !s.CurrentEmployer.Signed() {
		return false
	}
	return true
}

// byRole returns a pointer into the set for mutation, or nil when the role
// is not present on this convention.
func (s *Signatories) byRole(role SignatoryRole) *Signatory {
	switch role {
	case RoleBeneficiary:
		return &s.Beneficiary
	case RoleEstablishmentRepresentative:
		return &s.EstablishmentRepresentative
	case RoleLegalRepresentative:
		return s.LegalRepresentative
	case RoleCurrentEmployer:
		return s.CurrentEmployer
	}
	return nil
}

// Convention is the tri-party agreement governing one immersion placement.
type Convention struct {
	ID                  string
	AgencyID            string
	EstablishmentSiret  string
	Objective           string
	Status              Status
	Signatories         Signatories
	StatusJustification string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// New builds a convention in DRAFT. The submit transition moves it to
// READY_TO_SIGN in the same use case that persists it.
func New(id, agencyID, siret, objective string, signatories Signatories, now time.Time) (*Convention, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	if agencyID == "" {
		return nil, ErrMissingAgency
	}
	if siret == "" {
		return nil, ErrMissingSiret
	}
	if signatories.Beneficiary.Name == "" || signatories.Beneficiary.Email == "" {
		return nil, ErrMissingBeneficiary
	}
	if signatories.EstablishmentRepresentative.Name == "" || signatories.EstablishmentRepresentative.Email == "" {
		return nil, ErrMissingEstablishment
	}
	now = now.UTC()
	return &Convention{
		ID:                 id,
		AgencyID:           agencyID,
		EstablishmentSiret: siret,
		Objective:          objective,
		Status:             StatusDraft,
		Signatories:        signatories,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (c *Convention) touch(now time.Time) { c.UpdatedAt = now.UTC() }

// Clone returns a deep copy so repositories never share signatory pointers
// with callers.
func (c *Convention) Clone() *Convention {
	out := *c
	if c.Signatories.LegalRepresentative != nil {
		cp := *c.Signatories.LegalRepresentative
		out.Signatories.LegalRepresentative = &cp
	}
	if c.Signatories.CurrentEmployer != nil {
		cp := *c.Signatories.CurrentEmployer
		out.Signatories.CurrentEmployer = &cp
	}
	return &out
}

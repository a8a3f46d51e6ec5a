package establishment

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("establishment: not found")
	ErrAlreadyExists = errors.New("establishment: siret already registered")
	ErrInvalidSiret  = errors.New("establishment: siret must be 14 digits")
	ErrMissingName   = errors.New("establishment: name is required")
)

// Establishment is a host company able to welcome immersion placements,
// registered once per SIRET.
type Establishment struct {
	Siret        string
	Name         string
	ContactEmail string
	CreatedAt    time.Time
}

func New(siret, name, contactEmail string, now time.Time) (*Establishment, error) {
	if !validSiret(siret) {
		return nil, ErrInvalidSiret
	}
	if name == "" {
		return nil, ErrMissingName
	}
	return &Establishment{
		Siret:        siret,
		Name:         name,
		ContactEmail: contactEmail,
		CreatedAt:    now.UTC(),
	}, nil
}

func validSiret(siret string) bool {
	if len(siret) != 14 {
		return false
	}
	for _, r := range siret {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

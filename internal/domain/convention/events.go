package convention

import (
	"time"

	"github.com/stagelink/immersion/internal/domain/outbox"
)

// SubmittedEvent announces a freshly submitted convention awaiting
// signatures.
type SubmittedEvent struct {
	ConventionID       string `json:"conventionId"`
	AgencyID           string `json:"agencyId"`
	EstablishmentSiret string `json:"establishmentSiret"`
}

func (SubmittedEvent) Topic() outbox.Topic { return outbox.TopicConventionSubmitted }

// SignedEvent records one party's signature while others are still missing.
// The completing signature emits FullySignedEvent instead.
type SignedEvent struct {
	ConventionID string        `json:"conventionId"`
	Role         SignatoryRole `json:"role"`
	SignedAt     time.Time     `json:"signedAt"`
}

func (e SignedEvent) Topic() outbox.Topic {
	switch e.Role {
	case RoleBeneficiary:
		return outbox.TopicBeneficiarySigned
	case RoleEstablishmentRepresentative:
		return outbox.TopicEstablishmentRepresentativeSigned
	case RoleLegalRepresentative:
		return outbox.TopicLegalRepresentativeSigned
	case RoleCurrentEmployer:
		return outbox.TopicCurrentEmployerSigned
	}
	return ""
}

type FullySignedEvent struct {
	ConventionID string    `json:"conventionId"`
	AgencyID     string    `json:"agencyId"`
	SignedAt     time.Time `json:"signedAt"`
}

func (FullySignedEvent) Topic() outbox.Topic { return outbox.TopicConventionFullySigned }

type AcceptedByCounsellorEvent struct {
	ConventionID string `json:"conventionId"`
	CounsellorID string `json:"counsellorId"`
}

func (AcceptedByCounsellorEvent) Topic() outbox.Topic {
	return outbox.TopicConventionAcceptedByCounsellor
}

type AcceptedByValidatorEvent struct {
	ConventionID string `json:"conventionId"`
	ValidatorID  string `json:"validatorId"`
}

func (AcceptedByValidatorEvent) Topic() outbox.Topic {
	return outbox.TopicConventionAcceptedByValidator
}

// BroadcastToPartnerRequestedEvent schedules the push of a validated
// convention to the external partner behind the originating agency.
type BroadcastToPartnerRequestedEvent struct {
	ConventionID string `json:"conventionId"`
	AgencyID     string `json:"agencyId"`
}

func (BroadcastToPartnerRequestedEvent) Topic() outbox.Topic {
	return outbox.TopicConventionBroadcastToPartnerRequested
}

type RejectedEvent struct {
	ConventionID  string `json:"conventionId"`
	Justification string `json:"justification"`
	ActorID       string `json:"actorId"`
}

func (RejectedEvent) Topic() outbox.Topic { return outbox.TopicConventionRejected }

type CancelledEvent struct {
	ConventionID string `json:"conventionId"`
	ActorID      string `json:"actorId"`
}

func (CancelledEvent) Topic() outbox.Topic { return outbox.TopicConventionCancelled }

type DeprecatedEvent struct {
	ConventionID string `json:"conventionId"`
	ActorID      string `json:"actorId"`
}

func (DeprecatedEvent) Topic() outbox.Topic { return outbox.TopicConventionDeprecated }

package convention

import (
	"time"

	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

// TransitionKind is a requested change to a convention's legal state.
type TransitionKind string

const (
	TransitionSubmit             TransitionKind = "submit"
	TransitionSign               TransitionKind = "sign"
	TransitionAcceptByCounsellor TransitionKind = "accept_by_counsellor"
	TransitionAcceptByValidator  TransitionKind = "accept_by_validator"
	TransitionReject             TransitionKind = "reject"
	TransitionCancel             TransitionKind = "cancel"
	TransitionDeprecate          TransitionKind = "deprecate"
)

// transitionTable is the closed set of legal edges. A request whose kind is
// absent from the current status' row fails with an illegal-transition
// error; it is never silently ignored.
var transitionTable = map[Status]map[TransitionKind]struct{}{
	StatusDraft: {
		TransitionSubmit:    {},
		TransitionReject:    {},
		TransitionCancel:    {},
		TransitionDeprecate: {},
	},
	StatusReadyToSign: {
		TransitionSign:      {},
		TransitionReject:    {},
		TransitionCancel:    {},
		TransitionDeprecate: {},
	},
	StatusPartiallySigned: {
		TransitionSign:      {},
		TransitionReject:    {},
		TransitionCancel:    {},
		TransitionDeprecate: {},
	},
	StatusInReview: {
		TransitionAcceptByCounsellor: {},
		TransitionAcceptByValidator:  {},
		TransitionReject:             {},
		TransitionCancel:             {},
		TransitionDeprecate:          {},
	},
	StatusAcceptedByCounsellor: {
		TransitionAcceptByValidator: {},
		TransitionReject:            {},
		TransitionCancel:            {},
		TransitionDeprecate:         {},
	},
	StatusAcceptedByValidator: {
		TransitionReject:    {},
		TransitionCancel:    {},
		TransitionDeprecate: {},
	},
	StatusRejected:   {},
	StatusCancelled:  {},
	StatusDeprecated: {},
}

// CanApply reports whether the transition kind has an edge from the current
// status.
func (c *Convention) CanApply(kind TransitionKind) bool {
	_, ok := transitionTable[c.Status][kind]
	return ok
}

func (c *Convention) guard(kind TransitionKind) error {
	if !c.CanApply(kind) {
		return domainerr.NewIllegalTransition(string(c.Status), string(kind))
	}
	return nil
}

// Result reports the outcome of one accepted transition request. Changed is
// false for idempotent no-ops (e.g. re-signing), which emit no events.
type Result struct {
	Changed bool
	Events  []outbox.Payload
}

// Submit moves a drafted convention to READY_TO_SIGN and announces it.
func (c *Convention) Submit(now time.Time) (Result, error) {
	if err := c.guard(TransitionSubmit); err != nil {
		return Result{}, err
	}
	c.Status = StatusReadyToSign
	c.touch(now)
	return Result{Changed: true, Events: []outbox.Payload{
		SubmittedEvent{ConventionID: c.ID, AgencyID: c.AgencyID, EstablishmentSiret: c.EstablishmentSiret},
	}}, nil
}

// Sign records one party's signature. Signing moves the convention toward
// IN_REVIEW only once every party present on it has signed; until then the
// status is PARTIALLY_SIGNED. Re-signing by an already-signed party is a
// no-op: unchanged status, no event.
func (c *Convention) Sign(role SignatoryRole, now time.Time) (Result, error) {
	if err := c.guard(TransitionSign); err != nil {
		return Result{}, err
	}
	signatory := c.Signatories.byRole(role)
	if signatory == nil {
		return Result{}, domainerr.NewIllegalTransition(string(c.Status), "sign as absent "+string(role))
	}
	if signatory.Signed() {
		return Result{}, nil
	}
	signedAt := now.UTC()
	signatory.SignedAt = &signedAt
	c.touch(now)

	if c.Signatories.AllSigned() {
		c.Status = StatusInReview
		return Result{Changed: true, Events: []outbox.Payload{
			FullySignedEvent{ConventionID: c.ID, AgencyID: c.AgencyID, SignedAt: signedAt},
		}}, nil
	}
	c.Status = StatusPartiallySigned
	return Result{Changed: true, Events: []outbox.Payload{
		SignedEvent{ConventionID: c.ID, Role: role, SignedAt: signedAt},
	}}, nil
}

// AcceptByCounsellor records the pre-validation step some agencies require.
func (c *Convention) AcceptByCounsellor(actorID string, now time.Time) (Result, error) {
	if err := c.guard(TransitionAcceptByCounsellor); err != nil {
		return Result{}, err
	}
	c.Status = StatusAcceptedByCounsellor
	c.touch(now)
	return Result{Changed: true, Events: []outbox.Payload{
		AcceptedByCounsellorEvent{ConventionID: c.ID, CounsellorID: actorID},
	}}, nil
}

// AcceptByValidator is the final agency validation. When the agency is a
// broadcast partner the validation also schedules the partner notification,
// in the same commit.
func (c *Convention) AcceptByValidator(actorID string, broadcastToPartner bool, now time.Time) (Result, error) {
	if err := c.guard(TransitionAcceptByValidator); err != nil {
		return Result{}, err
	}
	c.Status = StatusAcceptedByValidator
	c.touch(now)
	events := []outbox.Payload{
		AcceptedByValidatorEvent{ConventionID: c.ID, ValidatorID: actorID},
	}
	if broadcastToPartner {
		events = append(events, BroadcastToPartnerRequestedEvent{ConventionID: c.ID, AgencyID: c.AgencyID})
	}
	return Result{Changed: true, Events: events}, nil
}

// Reject terminates the convention with a mandatory justification.
func (c *Convention) Reject(justification, actorID string, now time.Time) (Result, error) {
	if err := c.guard(TransitionReject); err != nil {
		return Result{}, err
	}
	c.Status = StatusRejected
	c.StatusJustification = justification
	c.touch(now)
	return Result{Changed: true, Events: []outbox.Payload{
		RejectedEvent{ConventionID: c.ID, Justification: justification, ActorID: actorID},
	}}, nil
}

// Cancel terminates the convention under agency or admin action.
func (c *Convention) Cancel(actorID string, now time.Time) (Result, error) {
	if err := c.guard(TransitionCancel); err != nil {
		return Result{}, err
	}
	c.Status = StatusCancelled
	c.touch(now)
	return Result{Changed: true, Events: []outbox.Payload{
		CancelledEvent{ConventionID: c.ID, ActorID: actorID},
	}}, nil
}

// Deprecate marks the convention obsolete; it stays stored but can no
// longer move.
func (c *Convention) Deprecate(actorID string, now time.Time) (Result, error) {
	if err := c.guard(TransitionDeprecate); err != nil {
		return Result{}, err
	}
	c.Status = StatusDeprecated
	c.touch(now)
	return Result{Changed: true, Events: []outbox.Payload{
		DeprecatedEvent{ConventionID: c.ID, ActorID: actorID},
	}}, nil
}

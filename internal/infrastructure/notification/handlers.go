package notification

import (
	"context"
	"fmt"

	"github.com/stagelink/immersion/internal/application/crawler"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

// ConventionMailer turns convention lifecycle events into email to the
// parties. Handlers are idempotent from the platform's point of view:
// redelivery resends a notification, which is the accepted cost of
// at-least-once dispatch.
type ConventionMailer struct {
	conventions convention.Repository
	gateway     EmailGateway
}

func NewConventionMailer(conventions convention.Repository, gateway EmailGateway) *ConventionMailer {
	return &ConventionMailer{conventions: conventions, gateway: gateway}
}

func (m *ConventionMailer) load(ctx context.Context, id string) (*convention.Convention, error) {
	conv, err := m.conventions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("notification: load convention %s: %w", id, err)
	}
	return conv, nil
}

// OnSubmitted asks every party to sign.
func (m *ConventionMailer) OnSubmitted() crawler.Subscriber {
	return crawler.Subscriber{
		Name: "signature_request_email",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.SubmittedEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			conv, err := m.load(ctx, p.ConventionID)
			if err != nil {
				return err
			}
			subject := "Convention ready to sign"
			body := fmt.Sprintf("Convention %s with establishment %s awaits your signature.", conv.ID, conv.EstablishmentSiret)
			for _, to := range signatoryEmails(conv.Signatories) {
				if err := m.gateway.Send(ctx, to, subject, body); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// OnSigned confirms the signature to the signer. One subscriber serves all
// four role-specific topics.
func (m *ConventionMailer) OnSigned() crawler.Subscriber {
	return crawler.Subscriber{
		Name: "signature_confirmation_email",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.SignedEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			conv, err := m.load(ctx, p.ConventionID)
			if err != nil {
				return err
			}
			to := emailForRole(conv.Signatories, p.Role)
			if to == "" {
				return nil
			}
			subject := "Signature recorded"
			body := fmt.Sprintf("Your signature on convention %s was recorded at %s.", conv.ID, p.SignedAt.Format("2006-01-02 15:04"))
			return m.gateway.Send(ctx, to, subject, body)
		},
	}
}

// OnFullySigned tells the beneficiary the agency review started.
func (m *ConventionMailer) OnFullySigned() crawler.Subscriber {
	return crawler.Subscriber{
		Name: "review_started_email",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.FullySignedEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			conv, err := m.load(ctx, p.ConventionID)
			if err != nil {
				return err
			}
			subject := "Convention under review"
			body := fmt.Sprintf("All parties signed convention %s; the agency is now reviewing it.", conv.ID)
			return m.gateway.Send(ctx, conv.Signatories.Beneficiary.Email, subject, body)
		},
	}
}

// OnAcceptedByValidator announces the final validation to every party.
func (m *ConventionMailer) OnAcceptedByValidator() crawler.Subscriber {
	return crawler.Subscriber{
		Name: "validation_email",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.AcceptedByValidatorEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			conv, err := m.load(ctx, p.ConventionID)
			if err != nil {
				return err
			}
			subject := "Convention validated"
			body := fmt.Sprintf("Convention %s was validated; the immersion can start.", conv.ID)
			for _, to := range signatoryEmails(conv.Signatories) {
				if err := m.gateway.Send(ctx, to, subject, body); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// OnRejected sends the justification to the beneficiary.
func (m *ConventionMailer) OnRejected() crawler.Subscriber {
	return crawler.Subscriber{
		Name: "rejection_email",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.RejectedEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			conv, err := m.load(ctx, p.ConventionID)
			if err != nil {
				return err
			}
			subject := "Convention rejected"
			body := fmt.Sprintf("Convention %s was rejected: %s", conv.ID, p.Justification)
			return m.gateway.Send(ctx, conv.Signatories.Beneficiary.Email, subject, body)
		},
	}
}

// PartnerBroadcastSubscriber pushes a validated convention to the partner
// system.
func PartnerBroadcastSubscriber(client PartnerClient) crawler.Subscriber {
	return crawler.Subscriber{
		Name: "partner_broadcast",
		Handle: func(ctx context.Context, e outbox.Event) error {
			p, ok := e.Payload.(convention.BroadcastToPartnerRequestedEvent)
			if !ok {
				return fmt.Errorf("notification: unexpected payload %T on %s", e.Payload, e.Topic)
			}
			return client.BroadcastConvention(ctx, p.ConventionID, p.AgencyID)
		},
	}
}

func signatoryEmails(s convention.Signatories) []string {
	out := []string{s.Beneficiary.Email, s.EstablishmentRepresentative.Email}
	if s.LegalRepresentative != nil {
		out = append(out, s.LegalRepresentative.Email)
	}
	if s.CurrentEmployer != nil {
		out = append(out, s.CurrentEmployer.Email)
	}
	return out
}

func emailForRole(s convention.Signatories, role convention.SignatoryRole) string {
	switch role {
	case convention.RoleBeneficiary:
		return s.Beneficiary.Email
	case convention.RoleEstablishmentRepresentative:
		return s.EstablishmentRepresentative.Email
	case convention.RoleLegalRepresentative:
		if s.LegalRepresentative != nil {
			return s.LegalRepresentative.Email
		}
	case convention.RoleCurrentEmployer:
		if s.CurrentEmployer != nil {
			return s.CurrentEmployer.Email
		}
	}
	return ""
}

package notification

import (
	"context"

	"github.com/stagelink/immersion/internal/observability"
)

// EmailGateway delivers transactional email to convention parties.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogEmailGateway records outgoing mail in the log. The production relay is
// a separate service; this keeps local and test runs self-contained.
type LogEmailGateway struct {
	log observability.Logger
}

func NewLogEmailGateway(tel observability.Observability) *LogEmailGateway {
	if tel == nil {
		tel = observability.Nop()
	}
	return &LogEmailGateway{log: tel.Logger().With(observability.F("component", "email_gateway"))}
}

func (g *LogEmailGateway) Send(ctx context.Context, to, subject, body string) error {
	_ = ctx
	g.log.Info("email_sent",
		observability.F("to", to),
		observability.F("subject", subject),
		observability.F("body_bytes", len(body)),
	)
	return nil
}

// PartnerClient pushes validated conventions to the external partner
// system.
type PartnerClient interface {
	BroadcastConvention(ctx context.Context, conventionID, agencyID string) error
}

// LogPartnerClient stands in for the partner API outside production.
type LogPartnerClient struct {
	log observability.Logger
}

func NewLogPartnerClient(tel observability.Observability) *LogPartnerClient {
	if tel == nil {
		tel = observability.Nop()
	}
	return &LogPartnerClient{log: tel.Logger().With(observability.F("component", "partner_client"))}
}

func (c *LogPartnerClient) BroadcastConvention(ctx context.Context, conventionID, agencyID string) error {
	_ = ctx
	c.log.Info("convention_broadcast",
		observability.F("convention_id", conventionID),
		observability.F("agency_id", agencyID),
	)
	return nil
}

package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/infrastructure/memory"
)

var mailNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type sentMail struct {
	To      string
	Subject string
}

type recordingGateway struct{ sent []sentMail }

func (g *recordingGateway) Send(ctx context.Context, to, subject, body string) error {
	g.sent = append(g.sent, sentMail{To: to, Subject: subject})
	return nil
}

func seedConvention(t *testing.T, store *memory.Store) *convention.Convention {
	t.Helper()
	conv, err := convention.New("conv-1", "agency-1", "12345678901234", "observe the trade", convention.Signatories{
		Beneficiary:                 convention.Signatory{Name: "Ana Silva", Email: "ana@example.org"},
		EstablishmentRepresentative: convention.Signatory{Name: "Marc Petit", Email: "marc@acme.example"},
		LegalRepresentative:         &convention.Signatory{Name: "Paul Silva", Email: "paul@example.org"},
	}, mailNow)
	require.NoError(t, err)
	require.NoError(t, store.Conventions().Save(context.Background(), conv))
	return conv
}

func wrap(t *testing.T, payload outbox.Payload) outbox.Event {
	t.Helper()
	e, err := outbox.New("evt-1", mailNow, payload)
	require.NoError(t, err)
	return e
}

func TestOnSubmitted_MailsEveryParty(t *testing.T) {
	store := memory.NewStore()
	seedConvention(t, store)
	gw := &recordingGateway{}
	sub := NewConventionMailer(store.Conventions(), gw).OnSubmitted()

	err := sub.Handle(context.Background(), wrap(t, convention.SubmittedEvent{
		ConventionID: "conv-1", AgencyID: "agency-1", EstablishmentSiret: "12345678901234",
	}))
	require.NoError(t, err)

	require.Len(t, gw.sent, 3)
	assert.Equal(t, "ana@example.org", gw.sent[0].To)
	assert.Equal(t, "marc@acme.example", gw.sent[1].To)
	assert.Equal(t, "paul@example.org", gw.sent[2].To)
}

func TestOnSigned_MailsTheSigner(t *testing.T) {
	store := memory.NewStore()
	seedConvention(t, store)
	gw := &recordingGateway{}
	sub := NewConventionMailer(store.Conventions(), gw).OnSigned()

	err := sub.Handle(context.Background(), wrap(t, convention.SignedEvent{
		ConventionID: "conv-1", Role: convention.RoleLegalRepresentative, SignedAt: mailNow,
	}))
	require.NoError(t, err)

	require.Len(t, gw.sent, 1)
	assert.Equal(t, "paul@example.org", gw.sent[0].To)
}

func TestOnRejected_MailsBeneficiaryWithJustification(t *testing.T) {
	store := memory.NewStore()
	seedConvention(t, store)
	gw := &recordingGateway{}
	sub := NewConventionMailer(store.Conventions(), gw).OnRejected()

	err := sub.Handle(context.Background(), wrap(t, convention.RejectedEvent{
		ConventionID: "conv-1", Justification: "objective too vague", ActorID: "validator-1",
	}))
	require.NoError(t, err)

	require.Len(t, gw.sent, 1)
	assert.Equal(t, "ana@example.org", gw.sent[0].To)
	assert.Equal(t, "Convention rejected", gw.sent[0].Subject)
}

func TestMailer_UnexpectedPayload_Errors(t *testing.T) {
	store := memory.NewStore()
	seedConvention(t, store)
	gw := &recordingGateway{}
	sub := NewConventionMailer(store.Conventions(), gw).OnSubmitted()

	err := sub.Handle(context.Background(), wrap(t, convention.RejectedEvent{ConventionID: "conv-1"}))
	require.Error(t, err)
	assert.Empty(t, gw.sent)
}

func TestMailer_MissingConvention_Errors(t *testing.T) {
	store := memory.NewStore()
	gw := &recordingGateway{}
	sub := NewConventionMailer(store.Conventions(), gw).OnFullySigned()

	err := sub.Handle(context.Background(), wrap(t, convention.FullySignedEvent{
		ConventionID: "conv-9", AgencyID: "agency-1", SignedAt: mailNow,
	}))
	assert.Error(t, err)
}

type recordingPartner struct{ calls [][2]string }

func (c *recordingPartner) BroadcastConvention(ctx context.Context, conventionID, agencyID string) error {
	c.calls = append(c.calls, [2]string{conventionID, agencyID})
	return nil
}

func TestPartnerBroadcastSubscriber(t *testing.T) {
	client := &recordingPartner{}
	sub := PartnerBroadcastSubscriber(client)

	err := sub.Handle(context.Background(), wrap(t, convention.BroadcastToPartnerRequestedEvent{
		ConventionID: "conv-1", AgencyID: "agency-1",
	}))
	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, [2]string{"conv-1", "agency-1"}, client.calls[0])
}

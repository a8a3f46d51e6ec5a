package convention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func twoPartyConvention(t *testing.T, status Status) *Convention {
	t.Helper()
	conv, err := New("conv-1", "agency-1", "12345678901234", "discover the trade", Signatories{
		Beneficiary:                 Signatory{Name: "Ana Silva", Email: "ana@example.org"},
		EstablishmentRepresentative: Signatory{Name: "Marc Petit", Email: "marc@acme.example"},
	}, testNow)
	require.NoError(t, err)
	conv.Status = status
	return conv
}

func fourPartyConvention(t *testing.T) *Convention {
	t.Helper()
	conv, err := New("conv-2", "agency-1", "12345678901234", "", Signatories{
		Beneficiary:                 Signatory{Name: "Ana Silva", Email: "ana@example.org"},
		EstablishmentRepresentative: Signatory{Name: "Marc Petit", Email: "marc@acme.example"},
		LegalRepresentative:         &Signatory{Name: "Paul Silva", Email: "paul@example.org"},
		CurrentEmployer:             &Signatory{Name: "Jo Blanc", Email: "jo@employer.example"},
	}, testNow)
	require.NoError(t, err)
	conv.Status = StatusReadyToSign
	return conv
}

func TestTransitionTable_Exhaustive(t *testing.T) {
	allKinds := []TransitionKind{
		TransitionSubmit, TransitionSign, TransitionAcceptByCounsellor,
		TransitionAcceptByValidator, TransitionReject, TransitionCancel, TransitionDeprecate,
	}
	allowed := map[Status][]TransitionKind{
		StatusDraft:                {TransitionSubmit, TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusReadyToSign:          {TransitionSign, TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusPartiallySigned:      {TransitionSign, TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusInReview:             {TransitionAcceptByCounsellor, TransitionAcceptByValidator, TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusAcceptedByCounsellor: {TransitionAcceptByValidator, TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusAcceptedByValidator:  {TransitionReject, TransitionCancel, TransitionDeprecate},
		StatusRejected:             {},
		StatusCancelled:            {},
		StatusDeprecated:           {},
	}

	for status, kinds := range allowed {
		want := make(map[TransitionKind]bool, len(kinds))
		for _, k := range kinds {
			want[k] = true
		}
		conv := twoPartyConvention(t, status)
		for _, kind := range allKinds {
			assert.Equalf(t, want[kind], conv.CanApply(kind), "status %s kind %s", status, kind)
		}
	}
}

func TestTerminalStatuses_AdmitNothing(t *testing.T) {
	for _, status := range []Status{StatusRejected, StatusCancelled, StatusDeprecated} {
		assert.True(t, status.Terminal())
		conv := twoPartyConvention(t, status)

		_, err := conv.AcceptByValidator("user-1", false, testNow)
		require.Error(t, err)
		assert.Equal(t, domainerr.KindIllegalTransition, domainerr.KindOf(err))
		assert.Equal(t, status, conv.Status, "refused transition must not change state")
	}
}

func TestSign_TwoPartyFlow(t *testing.T) {
	conv := twoPartyConvention(t, StatusReadyToSign)

	res, err := conv.Sign(RoleBeneficiary, testNow)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, StatusPartiallySigned, conv.Status)
	require.Len(t, res.Events, 1)
	assert.Equal(t, outbox.TopicBeneficiarySigned, res.Events[0].Topic())

	res, err = conv.Sign(RoleEstablishmentRepresentative, testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, StatusInReview, conv.Status)
	require.Len(t, res.Events, 1)
	assert.Equal(t, outbox.TopicConventionFullySigned, res.Events[0].Topic())
}

func TestSign_FourPartyFlow(t *testing.T) {
	conv := fourPartyConvention(t)

	roles := []SignatoryRole{RoleBeneficiary, RoleLegalRepresentative, RoleCurrentEmployer}
	for _, role := range roles {
		res, err := conv.Sign(role, testNow)
		require.NoError(t, err)
		assert.Equal(t, StatusPartiallySigned, conv.Status)
		require.Len(t, res.Events, 1)
	}

	res, err := conv.Sign(RoleEstablishmentRepresentative, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, conv.Status)
	require.Len(t, res.Events, 1)
	assert.Equal(t, outbox.TopicConventionFullySigned, res.Events[0].Topic())
}

func TestSign_AlreadySigned_IsNoOp(t *testing.T) {
	conv := twoPartyConvention(t, StatusReadyToSign)

	_, err := conv.Sign(RoleBeneficiary, testNow)
	require.NoError(t, err)

	res, err := conv.Sign(RoleBeneficiary, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.Events)
	assert.Equal(t, StatusPartiallySigned, conv.Status)
	assert.Equal(t, testNow, *conv.Signatories.Beneficiary.SignedAt, "original signature timestamp must survive")
}

func TestSign_AbsentRole_Fails(t *testing.T) {
	conv := twoPartyConvention(t, StatusReadyToSign)

	_, err := conv.Sign(RoleLegalRepresentative, testNow)
	require.Error(t, err)
	assert.Equal(t, domainerr.KindIllegalTransition, domainerr.KindOf(err))
	assert.Equal(t, StatusReadyToSign, conv.Status)
}

func TestAcceptByValidator_PartnerBroadcast(t *testing.T) {
	conv := twoPartyConvention(t, StatusInReview)

	res, err := conv.AcceptByValidator("validator-1", true, testNow)
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, outbox.TopicConventionAcceptedByValidator, res.Events[0].Topic())
	assert.Equal(t, outbox.TopicConventionBroadcastToPartnerRequested, res.Events[1].Topic())
}

func TestReject_KeepsJustification(t *testing.T) {
	conv := twoPartyConvention(t, StatusInReview)

	res, err := conv.Reject("incomplete objective", "validator-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, conv.Status)
	assert.Equal(t, "incomplete objective", conv.StatusJustification)
	require.Len(t, res.Events, 1)

	payload, ok := res.Events[0].(RejectedEvent)
	require.True(t, ok)
	assert.Equal(t, "incomplete objective", payload.Justification)
}

func TestSubmit_FromDraft(t *testing.T) {
	conv := twoPartyConvention(t, StatusDraft)

	res, err := conv.Submit(testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyToSign, conv.Status)
	require.Len(t, res.Events, 1)
	assert.Equal(t, outbox.TopicConventionSubmitted, res.Events[0].Topic())
}

func TestNew_Validation(t *testing.T) {
	base := Signatories{
		Beneficiary:                 Signatory{Name: "Ana", Email: "ana@example.org"},
		EstablishmentRepresentative: Signatory{Name: "Marc", Email: "marc@acme.example"},
	}

	_, err := New("", "agency-1", "12345678901234", "", base, testNow)
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = New("conv-1", "", "12345678901234", "", base, testNow)
	assert.ErrorIs(t, err, ErrMissingAgency)

	_, err = New("conv-1", "agency-1", "", "", base, testNow)
	assert.ErrorIs(t, err, ErrMissingSiret)

	missingBeneficiary := base
	missingBeneficiary.Beneficiary.Email = ""
	_, err = New("conv-1", "agency-1", "12345678901234", "", missingBeneficiary, testNow)
	assert.ErrorIs(t, err, ErrMissingBeneficiary)
}

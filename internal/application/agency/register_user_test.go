package agency

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/infrastructure/memory"
	"github.com/stagelink/immersion/internal/observability"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("id-%d", s.n.Add(1)) }

func seedAgency(t *testing.T, store *memory.Store, id string) {
	t.Helper()
	ag, err := domain.New(id, "Agence Locale", domain.KindMissionLocale)
	require.NoError(t, err)
	require.NoError(t, store.Agencies().Save(context.Background(), ag))
}

func TestRegisterUser_GrantsRoleAndRecordsEvent(t *testing.T) {
	store := memory.NewStore()
	seedAgency(t, store, "agency-1")

	uc := NewRegisterUserUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())
	result, err := uc.Execute(context.Background(), RegisterUserInput{
		UserID: "user-1", AgencyID: "agency-1", Role: domain.RoleCounsellor,
	})
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, []domain.Role{domain.RoleCounsellor}, result.Roles)

	right, err := store.Agencies().UserRight(context.Background(), "user-1", "agency-1")
	require.NoError(t, err)
	assert.True(t, right.Has(domain.RoleCounsellor))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.TopicAgencyRegisteredToUser, events[0].Topic)
}

func TestRegisterUser_SecondRoleAccumulates(t *testing.T) {
	store := memory.NewStore()
	seedAgency(t, store, "agency-1")

	uc := NewRegisterUserUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())
	_, err := uc.Execute(context.Background(), RegisterUserInput{
		UserID: "user-1", AgencyID: "agency-1", Role: domain.RoleCounsellor,
	})
	require.NoError(t, err)

	result, err := uc.Execute(context.Background(), RegisterUserInput{
		UserID: "user-1", AgencyID: "agency-1", Role: domain.RoleValidator,
	})
	require.NoError(t, err)
	assert.True(t, result.Granted)
	assert.ElementsMatch(t, []domain.Role{domain.RoleCounsellor, domain.RoleValidator}, result.Roles)
	assert.Len(t, store.Events(), 2)
}

func TestRegisterUser_Regrant_IsNoOp(t *testing.T) {
	store := memory.NewStore()
	seedAgency(t, store, "agency-1")

	uc := NewRegisterUserUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())
	input := RegisterUserInput{UserID: "user-1", AgencyID: "agency-1", Role: domain.RoleValidator}

	_, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	result, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, []domain.Role{domain.RoleValidator}, result.Roles)
	assert.Len(t, store.Events(), 1, "re-granting a held role must not record another event")
}

func TestRegisterUser_UnknownAgency(t *testing.T) {
	store := memory.NewStore()

	uc := NewRegisterUserUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())
	_, err := uc.Execute(context.Background(), RegisterUserInput{
		UserID: "user-1", AgencyID: "nowhere", Role: domain.RoleValidator,
	})
	require.Error(t, err)
	assert.Equal(t, domainerr.KindNotFound, domainerr.KindOf(err))
}

func TestRegisterUser_UnknownRole_FailsValidation(t *testing.T) {
	store := memory.NewStore()
	seedAgency(t, store, "agency-1")

	uc := NewRegisterUserUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())
	_, err := uc.Execute(context.Background(), RegisterUserInput{
		UserID: "user-1", AgencyID: "agency-1", Role: domain.Role("superuser"),
	})
	require.Error(t, err)
	assert.Equal(t, domainerr.KindValidationFailed, domainerr.KindOf(err))
}

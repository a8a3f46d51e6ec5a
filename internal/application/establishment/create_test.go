package establishment

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
	"github.com/stagelink/immersion/internal/infrastructure/memory"
	"github.com/stagelink/immersion/internal/observability"
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("id-%d", s.n.Add(1)) }

func TestCreate_SavesRowAndEvent(t *testing.T) {
	store := memory.NewStore()
	uc := NewCreateUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())

	result, err := uc.Execute(context.Background(), CreateInput{
		Siret: "12345678901234", Name: "Boulangerie Petit", ContactEmail: "contact@petit.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678901234", result.Siret)

	est, err := store.Establishments().GetBySiret(context.Background(), "12345678901234")
	require.NoError(t, err)
	assert.Equal(t, "Boulangerie Petit", est.Name)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.TopicEstablishmentCreated, events[0].Topic)
}

func TestCreate_DuplicateSiret_Conflicts(t *testing.T) {
	store := memory.NewStore()
	uc := NewCreateUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())

	input := CreateInput{Siret: "12345678901234", Name: "Boulangerie Petit"}
	_, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, domainerr.KindConflict, domainerr.KindOf(err))
	assert.Len(t, store.Events(), 1)
}

func TestCreate_InvalidSiret_FailsValidation(t *testing.T) {
	store := memory.NewStore()
	uc := NewCreateUseCase(memory.NewUnitOfWork(store), &seqIDs{}, observability.Nop())

	for _, siret := range []string{"", "123", "1234567890123x"} {
		_, err := uc.Execute(context.Background(), CreateInput{Siret: siret, Name: "Boulangerie Petit"})
		require.Error(t, err, "siret %q", siret)
		assert.Equal(t, domainerr.KindValidationFailed, domainerr.KindOf(err))
	}
	assert.Empty(t, store.Events())
}

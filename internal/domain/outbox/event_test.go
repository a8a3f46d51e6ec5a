package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayload struct{ topic Topic }

func (p fakePayload) Topic() Topic { return p.topic }

var eventNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestEvent(t *testing.T) Event {
	t.Helper()
	e, err := New("evt-1", eventNow, fakePayload{topic: TopicConventionSubmitted})
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", eventNow, fakePayload{topic: TopicConventionSubmitted})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = New("evt-1", eventNow, nil)
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = New("evt-1", eventNow, fakePayload{topic: Topic("nobody.knows")})
	assert.ErrorIs(t, err, ErrUnknownTopic)
}

func TestEvent_TrivialPublication_IsTerminal(t *testing.T) {
	e := newTestEvent(t)
	assert.False(t, e.Terminal())
	assert.False(t, e.Settled())

	e.RecordPublication(Publication{At: eventNow})

	assert.True(t, e.Terminal())
	assert.True(t, e.Settled())
	assert.False(t, e.WasQuarantined)
}

func TestEvent_RetryUntilSuccess(t *testing.T) {
	e := newTestEvent(t)

	e.RecordPublication(Publication{At: eventNow, Outcomes: []Outcome{
		{Subscriber: "mailer", Err: "smtp down"},
	}})
	assert.False(t, e.Terminal())
	assert.False(t, e.Settled())
	assert.Equal(t, 1, e.FailureCountFor("mailer"))

	e.RecordPublication(Publication{At: eventNow.Add(time.Second), Outcomes: []Outcome{
		{Subscriber: "mailer"},
	}})
	assert.True(t, e.Terminal())
	assert.True(t, e.Settled())
	assert.True(t, e.SucceededFor("mailer"))
	assert.Equal(t, 1, e.FailureCountFor("mailer"), "success must not erase failure history")
}

func TestEvent_PartialSubscriberIndependence(t *testing.T) {
	e := newTestEvent(t)

	e.RecordPublication(Publication{At: eventNow, Outcomes: []Outcome{
		{Subscriber: "mailer"},
		{Subscriber: "partner", Err: "timeout"},
	}})
	assert.False(t, e.Terminal())
	assert.True(t, e.SucceededFor("mailer"))
	assert.False(t, e.SucceededFor("partner"))

	// Next attempt addresses only the still-pending subscriber.
	e.RecordPublication(Publication{At: eventNow.Add(time.Second), Outcomes: []Outcome{
		{Subscriber: "partner"},
	}})
	assert.True(t, e.Terminal())
	assert.True(t, e.Settled())
}

func TestEvent_Quarantine_SettlesWithoutTerminal(t *testing.T) {
	e := newTestEvent(t)

	e.RecordPublication(Publication{At: eventNow, Outcomes: []Outcome{
		{Subscriber: "partner", Err: "boom"},
	}})
	e.RecordPublication(Publication{At: eventNow.Add(time.Second), Outcomes: []Outcome{
		{Subscriber: "partner", Err: "boom", Quarantined: true},
	}})

	assert.True(t, e.WasQuarantined)
	assert.True(t, e.QuarantinedFor("partner"))
	assert.True(t, e.Settled(), "quarantined subscriber stops the retries")
	assert.False(t, e.Terminal(), "quarantine is not success")
}

func TestPublication_FullySuccessful(t *testing.T) {
	assert.True(t, Publication{At: eventNow}.FullySuccessful())
	assert.True(t, Publication{At: eventNow, Outcomes: []Outcome{{Subscriber: "a"}}}.FullySuccessful())
	assert.False(t, Publication{At: eventNow, Outcomes: []Outcome{{Subscriber: "a", Err: "x"}}}.FullySuccessful())
}

func TestEvent_Clone_IsIndependent(t *testing.T) {
	e := newTestEvent(t)
	e.RecordPublication(Publication{At: eventNow, Outcomes: []Outcome{{Subscriber: "mailer", Err: "x"}}})

	cp := e.Clone()
	cp.Publications[0].Outcomes[0].Err = ""
	cp.RecordPublication(Publication{At: eventNow})

	assert.Equal(t, 1, e.FailureCountFor("mailer"))
	assert.Len(t, e.Publications, 1)
}

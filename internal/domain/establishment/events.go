package establishment

import "github.com/stagelink/immersion/internal/domain/outbox"

// CreatedEvent announces a newly registered host establishment.
type CreatedEvent struct {
	Siret string `json:"siret"`
	Name  string `json:"name"`
}

func (CreatedEvent) Topic() outbox.Topic { return outbox.TopicEstablishmentCreated }

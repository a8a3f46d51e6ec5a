package postgres

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/stagelink/immersion/internal/domain/agency"
	"github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/establishment"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

type outcomeRecord struct {
	Subscriber  string `json:"subscriber"`
	Err         string `json:"error,omitempty"`
	Quarantined bool   `json:"quarantined,omitempty"`
}

type publicationRecord struct {
	At       time.Time       `json:"at"`
	Outcomes []outcomeRecord `json:"outcomes,omitempty"`
}

func encodePublications(pubs []outbox.Publication) ([]byte, error) {
	records := make([]publicationRecord, len(pubs))
	for i, p := range pubs {
		rec := publicationRecord{At: p.At}
		for _, o := range p.Outcomes {
			rec.Outcomes = append(rec.Outcomes, outcomeRecord{
				Subscriber:  o.Subscriber,
				Err:         o.Err,
				Quarantined: o.Quarantined,
			})
		}
		records[i] = rec
	}
	return json.Marshal(records)
}

func decodePublications(raw []byte) ([]outbox.Publication, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []publicationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("postgres: decode publications: %w", err)
	}
	pubs := make([]outbox.Publication, len(records))
	for i, rec := range records {
		p := outbox.Publication{At: rec.At}
		for _, o := range rec.Outcomes {
			p.Outcomes = append(p.Outcomes, outbox.Outcome{
				Subscriber:  o.Subscriber,
				Err:         o.Err,
				Quarantined: o.Quarantined,
			})
		}
		pubs[i] = p
	}
	return pubs, nil
}

func encodePayload(p outbox.Payload) ([]byte, error) {
	return json.Marshal(p)
}

// decodePayload rebuilds the typed event body from its topic. The switch is
// exhaustive over the closed topic set; an unlisted topic in the table means
// the row was written by newer code and must not be silently dropped.
func decodePayload(topic outbox.Topic, raw []byte) (outbox.Payload, error) {
	unmarshal := func(dst any) error {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("postgres: decode %s payload: %w", topic, err)
		}
		return nil
	}
	switch topic {
	case outbox.TopicConventionSubmitted:
		var p convention.SubmittedEvent
		return p, unmarshal(&p)
	case outbox.TopicBeneficiarySigned,
		outbox.TopicEstablishmentRepresentativeSigned,
		outbox.TopicLegalRepresentativeSigned,
		outbox.TopicCurrentEmployerSigned:
		var p convention.SignedEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionFullySigned:
		var p convention.FullySignedEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionAcceptedByCounsellor:
		var p convention.AcceptedByCounsellorEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionAcceptedByValidator:
		var p convention.AcceptedByValidatorEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionRejected:
		var p convention.RejectedEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionCancelled:
		var p convention.CancelledEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionDeprecated:
		var p convention.DeprecatedEvent
		return p, unmarshal(&p)
	case outbox.TopicConventionBroadcastToPartnerRequested:
		var p convention.BroadcastToPartnerRequestedEvent
		return p, unmarshal(&p)
	case outbox.TopicAgencyRegisteredToUser:
		var p agency.RegisteredToUserEvent
		return p, unmarshal(&p)
	case outbox.TopicEstablishmentCreated:
		var p establishment.CreatedEvent
		return p, unmarshal(&p)
	}
	return nil, fmt.Errorf("postgres: %w: %s", outbox.ErrUnknownTopic, topic)
}

func encodeSignatories(s convention.Signatories) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSignatories(raw []byte) (convention.Signatories, error) {
	var s convention.Signatories
	if err := json.Unmarshal(raw, &s); err != nil {
		return convention.Signatories{}, fmt.Errorf("postgres: decode signatories: %w", err)
	}
	return s, nil
}

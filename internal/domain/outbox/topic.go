package outbox

// Topic identifies the kind of business fact an event records. The set is
// closed: every topic the platform can emit is enumerated here, and the
// subscriber registry refuses to start unless each one is accounted for.
type Topic string

const (
	TopicConventionSubmitted                   Topic = "convention.submitted"
	TopicBeneficiarySigned                     Topic = "convention.beneficiary_signed"
	TopicEstablishmentRepresentativeSigned     Topic = "convention.establishment_representative_signed"
	TopicLegalRepresentativeSigned             Topic = "convention.legal_representative_signed"
	TopicCurrentEmployerSigned                 Topic = "convention.current_employer_signed"
	TopicConventionFullySigned                 Topic = "convention.fully_signed"
	TopicConventionAcceptedByCounsellor        Topic = "convention.accepted_by_counsellor"
	TopicConventionAcceptedByValidator         Topic = "convention.accepted_by_validator"
	TopicConventionRejected                    Topic = "convention.rejected"
	TopicConventionCancelled                   Topic = "convention.cancelled"
	TopicConventionDeprecated                  Topic = "convention.deprecated"
	TopicConventionBroadcastToPartnerRequested Topic = "convention.broadcast_to_partner_requested"
	TopicAgencyRegisteredToUser                Topic = "agency.registered_to_user"
	TopicEstablishmentCreated                  Topic = "establishment.created"
)

// Topics returns the full closed enumeration, in a stable order.
func Topics() []Topic {
	return []Topic{
		TopicConventionSubmitted,
		TopicBeneficiarySigned,
		TopicEstablishmentRepresentativeSigned,
		TopicLegalRepresentativeSigned,
		TopicCurrentEmployerSigned,
		TopicConventionFullySigned,
		TopicConventionAcceptedByCounsellor,
		TopicConventionAcceptedByValidator,
		TopicConventionRejected,
		TopicConventionCancelled,
		TopicConventionDeprecated,
		TopicConventionBroadcastToPartnerRequested,
		TopicAgencyRegisteredToUser,
		TopicEstablishmentCreated,
	}
}

func (t Topic) Valid() bool {
	for _, known := range Topics() {
		if t == known {
			return true
		}
	}
	return false
}

// Payload is any typed domain event body. Implementations live next to the
// aggregate that emits them and are immutable after creation.
type Payload interface {
	Topic() Topic
}

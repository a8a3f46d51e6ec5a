package agency

import "github.com/stagelink/immersion/internal/domain/outbox"

// RegisteredToUserEvent records that a user was linked to an agency with a
// role, so downstream systems can provision access.
type RegisteredToUserEvent struct {
	UserID   string `json:"userId"`
	AgencyID string `json:"agencyId"`
	Role     Role   `json:"role"`
}

func (RegisteredToUserEvent) Topic() outbox.Topic { return outbox.TopicAgencyRegisteredToUser }

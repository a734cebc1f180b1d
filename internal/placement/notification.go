package placement

import "time"

// NotificationKind identifies which transition produced a notification.
// Together with the related entity and the recipient it forms the
// idempotency key for dispatch.
type NotificationKind string

const (
	KindInterviewScheduled   NotificationKind = "INTERVIEW_SCHEDULED"
	KindApplicationEvaluated NotificationKind = "APPLICATION_EVALUATED"
	KindAcceptanceConfirmed  NotificationKind = "ACCEPTANCE_CONFIRMED"
	KindLetterIssued         NotificationKind = "LETTER_ISSUED"
	KindDecisionIssued       NotificationKind = "DECISION_ISSUED"
)

// Audience is the role-scoped target of an intent. The student and the
// organization are known from the application row; the director is resolved
// at dispatch time through the organization's accepted agreement.
type Audience string

const (
	AudienceStudent      Audience = "STUDENT"
	AudienceOrganization Audience = "ORGANIZATION"
	AudienceDirector     Audience = "DIRECTOR"
)

// NotificationIntent is the declarative side effect a successful transition
// yields. The engine never delivers anything itself.
type NotificationIntent struct {
	Audience          Audience         `json:"audience"`
	UserID            string           `json:"userId,omitempty"` // empty for AudienceDirector until resolved
	Kind              NotificationKind `json:"kind"`
	Title             string           `json:"title"`
	Message           string           `json:"message"`
	RelatedEntityID   string           `json:"relatedEntityId"`
	RelatedEntityType string           `json:"relatedEntityType"`
}

// Notification is the durable, owner-mutable row persisted per intent. It is
// derived state and never influences the application lifecycle.
type Notification struct {
	ID                string           `json:"id"`
	UserID            string           `json:"userId"`
	Title             string           `json:"title"`
	Message           string           `json:"message"`
	Kind              NotificationKind `json:"kind"`
	IsRead            bool             `json:"isRead"`
	RelatedEntityID   string           `json:"relatedEntityId,omitempty"`
	RelatedEntityType string           `json:"relatedEntityType,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
}

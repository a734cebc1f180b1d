package placement

import "time"

// OfferState is the availability of an offer. Only OPEN offers accept
// applications.
type OfferState string

const (
	OfferDraft  OfferState = "DRAFT"
	OfferOpen   OfferState = "OPEN"
	OfferClosed OfferState = "CLOSED"
)

// Offer is an internship posting by an organization. Publication is gated on
// the organization holding an accepted agreement with a director.
type Offer struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Field          string     `json:"field,omitempty"`
	Location       string     `json:"location,omitempty"`
	Modality       string     `json:"modality,omitempty"`
	Vacancies      int        `json:"vacancies"`
	State          OfferState `json:"state"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// AcceptsApplications reports whether students may apply to the offer.
func (o *Offer) AcceptsApplications() bool {
	return o.State == OfferOpen
}

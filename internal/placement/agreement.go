package placement

import (
	"fmt"
	"time"
)

// AgreementStatus is the two-state approval lifecycle between an
// organization and a director.
type AgreementStatus string

const (
	AgreementPending  AgreementStatus = "PENDING"
	AgreementAccepted AgreementStatus = "ACCEPTED"
	AgreementRejected AgreementStatus = "REJECTED"
)

// ParseAgreementStatus converts a raw string to an AgreementStatus.
func ParseAgreementStatus(s string) (AgreementStatus, error) {
	st := AgreementStatus(s)
	switch st {
	case AgreementPending, AgreementAccepted, AgreementRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown agreement status %q", s)
}

// AgreementRequest gates offer publication and names the director who signs
// off on the organization's placements.
type AgreementRequest struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	DirectorID     string          `json:"directorId"`
	Status         AgreementStatus `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	RequestedAt    time.Time       `json:"requestedAt"`
	DecidedAt      *time.Time      `json:"decidedAt,omitempty"`
}

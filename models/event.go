package models

import "time"

// EventType names what happened to a complaint
type EventType string

// Event types
const (
	EventComplaintCreated EventType = "complaint.created"
	EventComplaintUpdated EventType = "complaint.updated"
)

// ComplaintEvent is published on the change feed after a complaint is created or
// an action is committed against it.
type ComplaintEvent struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaintId"`
	Action      string    `json:"action,omitempty"`
	Status      Status    `json:"status"`
	ActorID     string    `json:"actorId,omitempty"`
	Complaint   Complaint `json:"complaint"`
	At          time.Time `json:"at"`
}

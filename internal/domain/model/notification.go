package model

import "time"

// NotificationType categorizes a notification.
type NotificationType string

// Notification types.
const (
	TipoRecomendacion NotificationType = "RECOMENDACION"
	TipoAlerta        NotificationType = "ALERTA"
	TipoInformativa   NotificationType = "INFORMATIVA"
)

// Priority is the delivery priority of a notification. Priority is assigned
// deterministically from the originating event type, never supplied by an
// athlete or operator.
type Priority string

// Notification priorities.
const (
	PrioridadBaja    Priority = "BAJA"
	PrioridadMedia   Priority = "MEDIA"
	PrioridadAlta    Priority = "ALTA"
	PrioridadCritica Priority = "CRITICA"
)

// Notification is an addressed inbox record. Mutated only to flip the read
// flag; never auto-deleted (retention is an external concern).
type Notification struct {
	ID         string           `json:"id"`
	Recipient  string           `json:"recipient"`
	Type       NotificationType `json:"type"`
	Priority   Priority         `json:"priority"`
	Read       bool             `json:"read"`
	PayloadRef string           `json:"payload_ref"`
	Message    string           `json:"message"`
	CreatedAt  time.Time        `json:"created_at"`
}

package event

import "time"

type Type string

const (
	TypeLoginSucceeded  Type = "auth.login.succeeded"
	TypeLoginFailed     Type = "auth.login.failed"
	TypeLogout          Type = "auth.logout"
	TypeResetRequested  Type = "auth.password_reset.requested"
	TypeResetCompleted  Type = "auth.password_reset.completed"
	TypeResetRejected   Type = "auth.password_reset.rejected"
	TypePasswordChanged Type = "user.password.changed"
	TypeLanguageUpdated Type = "user.language.updated"
)

// Event is a security-relevant occurrence. Payload never carries secrets.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	ActorID   string            `json:"actor_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}

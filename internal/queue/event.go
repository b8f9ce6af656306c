package queue

import (
	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// Notification is the inbound hero-image-changed envelope. Only the detail
// fields drive processing; the rest of the envelope is logged only.
type Notification struct {
	Detail     entities.SourceImageRef `json:"detail" validate:"required"`
	DetailType string                  `json:"detail-type"`
	Source     string                  `json:"source"`
	Time       string                  `json:"time"`
}

// Package agents keeps the registry of voice agents that produce calls.
// Producers reference agents by their own identifier; the pipeline works
// with the internal identifier assigned here.
package agents

import "time"

// Agent is a voice agent registered under an owning organization.
type Agent struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	CustomerAgentID string    `json:"customerAgentId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

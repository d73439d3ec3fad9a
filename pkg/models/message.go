// Package models contains the domain types shared across the router:
// conversation state, messages, routing decisions, and webhook payloads.
package models

import (
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

// Message roles.
const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleSystem   Role = "system"
)

// Origin records where a message entered the conversation log.
type Origin string

// Message origins.
const (
	OriginWebhook    Origin = "webhook"
	OriginCRMHistory Origin = "crm_history"
	OriginCheckpoint Origin = "checkpoint"
	OriginSpecialist Origin = "specialist"
	OriginSystemNote Origin = "system_note"
)

// AgentName identifies a specialist role. The responder matches these values
// exactly when selecting the outbound message.
type AgentName string

// Specialist roles: A handles cold leads (discovery), B handles warm leads
// (qualification), C handles hot leads (closing/appointments).
const (
	AgentDiscovery AgentName = "A"
	AgentQualifier AgentName = "B"
	AgentCloser    AgentName = "C"
)

// IsSpecialist reports whether n is one of the three specialist roles.
func (n AgentName) IsSpecialist() bool {
	return n == AgentDiscovery || n == AgentQualifier || n == AgentCloser
}

// Message is one entry in a conversation log. Messages are values: never
// mutated in place, only replaced through deduplication.
type Message struct {
	Role         Role       `json:"role"`
	AgentName    AgentName  `json:"agent_name,omitempty"`
	Content      string     `json:"content"`
	CRMMessageID string     `json:"crm_message_id,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Origin       Origin     `json:"origin"`
}

// NormalizeContent lowercases, trims, and collapses internal whitespace so
// equivalent message bodies compare equal during deduplication.
func NormalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DedupKey returns the reconciler's equivalence key:
// (role, normalized content, CRM message id).
func (m Message) DedupKey() string {
	return string(m.Role) + "\x1f" + NormalizeContent(m.Content) + "\x1f" + m.CRMMessageID
}

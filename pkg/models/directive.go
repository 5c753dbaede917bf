package models

import "strings"

// RiskLevel is the model-asserted danger rating of a proposed command.
// It labels the confirmation affordance; it is not a security boundary.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel normalizes a free-text level value. Anything
// unrecognized degrades to MEDIUM.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow
	case RiskHigh:
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Directive is a structured command proposal extracted from model
// output. It is transient: constructed by the parser, consumed by the
// confirmation UI, persisted only as serialized message metadata.
type Directive struct {
	Intention   string    `json:"intention"`
	Command     string    `json:"command"`
	Description string    `json:"description"`
	Level       RiskLevel `json:"level"`
}

// CommandRecord is the execution record serialized alongside a
// command_result message.
type CommandRecord struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
	Success   bool   `json:"success"`
}

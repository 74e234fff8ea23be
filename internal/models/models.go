// Package models defines the domain records exchanged between the classifier
// boundary, the escalation engine, and the action pipeline.
package models

import (
	"fmt"
	"strings"
)

// Severity is the categorical danger estimate of a single violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity matches a severity value case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	}
	return "", false
}

// SeverityFromToxicity buckets a classifier toxicity score into a severity.
func SeverityFromToxicity(score float64) Severity {
	switch {
	case score >= 0.8:
		return SeverityCritical
	case score >= 0.6:
		return SeverityHigh
	case score >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Action tags: the platform-independent instruction vocabulary produced by
// escalation plans and consumed by the execution pipeline.
const (
	TagHideComment         = "hide_comment"
	TagBlockUser           = "block_user"
	TagMuteTemp            = "mute_temp"
	TagMutePermanent       = "mute_permanent"
	TagReportToPlatform    = "report_to_platform"
	TagRequireManualReview = "require_manual_review"
	TagGatekeeperDown      = "gatekeeper_unavailable"
	TagCheckReincidence    = "check_reincidence"
	TagAddStrike1          = "add_strike_1"
	TagAddStrike2          = "add_strike_2"
)

// Violation is the classifier output for one comment.
type Violation struct {
	SeverityLevel Severity `json:"severity_level"`
	ToxicityScore float64  `json:"toxicity_score"`
	SecurityScore float64  `json:"security_score"`
	Categories    []string `json:"categories,omitempty"`

	ImmediateThreat   bool     `json:"immediate_threat,omitempty"`
	EmergencyKeywords []string `json:"emergency_keywords,omitempty"`

	LegalComplianceTrigger bool   `json:"legal_compliance_trigger,omitempty"`
	Jurisdiction           string `json:"jurisdiction,omitempty"`
	RequiresReporting      bool   `json:"requires_reporting,omitempty"`

	// SeverityOverride replaces SeverityLevel when it parses to a valid
	// severity (case-insensitive); anything else is ignored.
	SeverityOverride string `json:"severity_override,omitempty"`
}

// Emergency reports whether this violation triggers the emergency override.
func (v *Violation) Emergency() bool {
	return v.ImmediateThreat || len(v.EmergencyKeywords) > 0
}

// EffectiveSeverity applies the override rules to the base severity.
func (v *Violation) EffectiveSeverity() Severity {
	if sev, ok := ParseSeverity(v.SeverityOverride); ok {
		return sev
	}
	if sev, ok := ParseSeverity(string(v.SeverityLevel)); ok {
		return sev
	}
	return SeverityLow
}

// Comment is the minimal comment record the engine and executor need.
type Comment struct {
	ID               string `json:"id"`
	Platform         string `json:"platform"`
	PlatformUserID   string `json:"platform_user_id"`
	PlatformUsername string `json:"platform_username,omitempty"`
	Text             string `json:"text,omitempty"`
}

// ValidateForExecution checks the fields required before any action can be
// dispatched for this comment.
func (c *Comment) ValidateForExecution() error {
	var missing []string
	if c.ID == "" {
		missing = append(missing, "id")
	}
	if c.Platform == "" {
		missing = append(missing, "platform")
	}
	if c.PlatformUserID == "" {
		missing = append(missing, "platform_user_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("comment is missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// PlatformViolations is classifier metadata about platform-level rule
// violations for one comment.
type PlatformViolations struct {
	Reportable bool     `json:"reportable"`
	Rules      []string `json:"rules,omitempty"`
}

// Metadata accompanies an action-tag execution request.
type Metadata struct {
	Confidence         float64            `json:"confidence,omitempty"`
	ToxicityScore      float64            `json:"toxicity_score,omitempty"`
	PlatformViolations PlatformViolations `json:"platform_violations"`
}

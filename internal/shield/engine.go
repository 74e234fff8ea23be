// Package shield decides what moderation action to take against a user
// based on violation severity, accumulated behavior, and organization
// policy. The engine is pure: it never touches storage or the network.
package shield

import (
	"time"

	"shield/internal/behavior"
	"shield/internal/models"
)

// Config holds the escalation thresholds. Zero values are unusable; start
// from DefaultConfig and override fields as needed.
type Config struct {
	Enabled     bool
	AutoActions bool

	// ReincidenceThreshold is the violation count at which a repeat-offender
	// re-check is flagged during execution.
	ReincidenceThreshold int

	// Offense ladder boundaries, in cumulative violations.
	RepeatAt     int
	PersistentAt int
	DangerousAt  int

	// Time-decay window boundaries, measured from the last recorded action.
	AggressiveWindow time.Duration
	StandardWindow   time.Duration
	ReducedWindow    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		AutoActions:          true,
		ReincidenceThreshold: 3,
		RepeatAt:             1,
		PersistentAt:         3,
		DangerousAt:          6,
		AggressiveWindow:     time.Hour,
		StandardWindow:       24 * time.Hour,
		ReducedWindow:        7 * 24 * time.Hour,
	}
}

// Engine computes action plans. Safe for concurrent use.
type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// sanitizeBehavior guards against corrupted records. A nil record or a
// negative violation count is treated as a clean slate so analysis never
// fails on bad data.
func sanitizeBehavior(rec *behavior.Record) (count int, ok bool) {
	if rec == nil || rec.TotalViolations < 0 {
		return 0, false
	}
	return rec.TotalViolations, true
}

func (e *Engine) offenseForCount(count int) OffenseLevel {
	switch {
	case count >= e.cfg.DangerousAt:
		return OffenseDangerous
	case count >= e.cfg.PersistentAt:
		return OffensePersistent
	case count >= e.cfg.RepeatAt:
		return OffenseRepeat
	default:
		return OffenseFirst
	}
}

// TimeWindowEscalation classifies how recently the user was last actioned.
// Users with no action history get the standard window, as does anything
// unparseable; this never fails.
func (e *Engine) TimeWindowEscalation(rec *behavior.Record) EscalationWindow {
	if rec == nil {
		return WindowStandard
	}
	last, ok := rec.LastActionAt()
	if !ok || last.IsZero() {
		return WindowStandard
	}
	age := e.now().Sub(last)
	switch {
	case age < 0:
		// Clock skew: a future timestamp reads as a very recent action.
		return WindowAggressive
	case age < e.cfg.AggressiveWindow:
		return WindowAggressive
	case age < e.cfg.StandardWindow:
		return WindowStandard
	case age < e.cfg.ReducedWindow:
		return WindowReduced
	default:
		return WindowMinimal
	}
}

func adjustForWindow(level OffenseLevel, w EscalationWindow) OffenseLevel {
	switch w {
	case WindowAggressive:
		return level.Bump()
	case WindowMinimal:
		return level.Drop()
	default:
		return level
	}
}

// DetermineActions produces the action plan for a violation against a user's
// behavior record. Override priority, highest first: emergency, legal
// compliance, mute evasion, creator leniency, platform escalation policy.
func (e *Engine) DetermineActions(v *models.Violation, rec *behavior.Record) *ActionPlan {
	sev := v.EffectiveSeverity()
	count, _ := sanitizeBehavior(rec)
	level := e.offenseForCount(count)

	plan := &ActionPlan{
		Severity:       sev,
		OffenseLevel:   level,
		ViolationCount: count,
		Window:         WindowStandard,
	}

	// Emergency bypasses everything below it.
	if v.Emergency() {
		plan.Primary = ActionReport
		plan.Emergency = true
		plan.NotifyAuthorities = true
		plan.Reason = ReasonEmergencyEscalation
		plan.AutoExecute = e.ShouldAutoExecute(plan)
		return plan
	}

	if v.LegalComplianceTrigger {
		plan.Primary = ActionReport
		plan.LegalCompliance = true
		plan.Jurisdiction = v.Jurisdiction
		plan.RequiresReporting = v.RequiresReporting
		plan.Reason = ReasonLegalCompliance
		plan.AutoExecute = e.ShouldAutoExecute(plan)
		return plan
	}

	plan.Window = e.TimeWindowEscalation(rec)
	level = adjustForWindow(level, plan.Window)

	// A violation while muted means the user is evading the mute.
	if rec != nil && rec.IsMuted && rec.MuteExpiresAt != nil && rec.MuteExpiresAt.After(e.now()) {
		level = level.Bump()
		plan.Reason = ReasonMuteEvasion
	}
	plan.OffenseLevel = level

	plan.Primary = actionMatrix[sev][level]

	if rec != nil && rec.UserType == behavior.UserTypeVerifiedCreator {
		plan.ManualReviewRequired = true
		// Leniency caps the action below block, except for critical content.
		if sev != models.SeverityCritical && ladderIndex(plan.Primary) > ladderIndex(ActionMutePermanent) {
			plan.Primary = ActionMutePermanent
		}
	}

	if rec != nil {
		switch rec.PlatformConfig.EscalationPolicy {
		case PolicyAggressive:
			plan.Primary = plan.Primary.Escalate()
		case PolicyLenient:
			// Lenient never softens critical content.
			if sev != models.SeverityCritical {
				plan.Primary = plan.Primary.Soften()
			}
		}
	}

	plan.AutoExecute = e.ShouldAutoExecute(plan)
	return plan
}

// autoExecutable actions run without human signoff; block and report always
// wait for review unless severity forces them through.
var autoExecutable = map[Action]bool{
	ActionWarn:          true,
	ActionMuteTemp:      true,
	ActionMutePermanent: true,
}

// ShouldAutoExecute reports whether the plan's primary action may run
// without manual approval. Emergency and critical-severity plans always
// auto-execute;
// otherwise only reversible actions do, and only when automatic actions are
// enabled at all.
func (e *Engine) ShouldAutoExecute(plan *ActionPlan) bool {
	if !e.cfg.AutoActions {
		return false
	}
	if plan.Emergency {
		return true
	}
	if plan.Severity == models.SeverityCritical {
		return true
	}
	return autoExecutable[plan.Primary]
}

package shield

import "shield/internal/models"

// Action is an abstract moderation action, ordered from mildest to harshest.
type Action string

const (
	ActionWarn          Action = "warn"
	ActionMuteTemp      Action = "mute_temp"
	ActionMutePermanent Action = "mute_permanent"
	ActionBlock         Action = "block"
	ActionReport        Action = "report"
)

// actionLadder orders actions for the platform policy shift; the ladder is
// floored at warn and capped at report.
var actionLadder = []Action{
	ActionWarn,
	ActionMuteTemp,
	ActionMutePermanent,
	ActionBlock,
	ActionReport,
}

func ladderIndex(a Action) int {
	for i, v := range actionLadder {
		if v == a {
			return i
		}
	}
	return 0
}

// Escalate returns the next harsher action on the ladder.
func (a Action) Escalate() Action {
	i := ladderIndex(a)
	if i+1 < len(actionLadder) {
		return actionLadder[i+1]
	}
	return actionLadder[len(actionLadder)-1]
}

// Soften returns the next milder action on the ladder.
func (a Action) Soften() Action {
	if i := ladderIndex(a); i > 0 {
		return actionLadder[i-1]
	}
	return actionLadder[0]
}

// OffenseLevel is the escalation stage derived from cumulative violations.
type OffenseLevel string

const (
	OffenseFirst      OffenseLevel = "first"
	OffenseRepeat     OffenseLevel = "repeat"
	OffensePersistent OffenseLevel = "persistent"
	OffenseDangerous  OffenseLevel = "dangerous"
)

var offenseLadder = []OffenseLevel{
	OffenseFirst,
	OffenseRepeat,
	OffensePersistent,
	OffenseDangerous,
}

func offenseIndex(o OffenseLevel) int {
	for i, v := range offenseLadder {
		if v == o {
			return i
		}
	}
	return 0
}

// Bump moves the offense level one step up the ladder; dangerous stays
// dangerous.
func (o OffenseLevel) Bump() OffenseLevel {
	i := offenseIndex(o)
	if i+1 < len(offenseLadder) {
		return offenseLadder[i+1]
	}
	return offenseLadder[len(offenseLadder)-1]
}

// Drop moves the offense level one step down the ladder; first stays first.
func (o OffenseLevel) Drop() OffenseLevel {
	if i := offenseIndex(o); i > 0 {
		return offenseLadder[i-1]
	}
	return offenseLadder[0]
}

// EscalationWindow is the time-decay modifier derived from how recently the
// user was last actioned.
type EscalationWindow string

const (
	WindowAggressive EscalationWindow = "aggressive" // last action < 1h ago
	WindowStandard   EscalationWindow = "standard"   // 1h - 24h
	WindowReduced    EscalationWindow = "reduced"    // 24h - 7d
	WindowMinimal    EscalationWindow = "minimal"    // > 7d
)

// Escalation policies configurable per platform on a behavior record.
const (
	PolicyAggressive = "aggressive"
	PolicyStandard   = "standard"
	PolicyLenient    = "lenient"
)

// Reasons attached to override-driven plans.
const (
	ReasonEmergencyEscalation = "emergency_escalation"
	ReasonLegalCompliance     = "legal_compliance"
	ReasonMuteEvasion         = "mute_evasion"
)

// actionMatrix selects the base action for (severity, offense level).
var actionMatrix = map[models.Severity]map[OffenseLevel]Action{
	models.SeverityLow: {
		OffenseFirst:      ActionWarn,
		OffenseRepeat:     ActionMuteTemp,
		OffensePersistent: ActionMutePermanent,
		OffenseDangerous:  ActionBlock,
	},
	models.SeverityMedium: {
		OffenseFirst:      ActionMuteTemp,
		OffenseRepeat:     ActionMutePermanent,
		OffensePersistent: ActionBlock,
		OffenseDangerous:  ActionReport,
	},
	models.SeverityHigh: {
		OffenseFirst:      ActionMutePermanent,
		OffenseRepeat:     ActionBlock,
		OffensePersistent: ActionReport,
		OffenseDangerous:  ActionReport,
	},
	models.SeverityCritical: {
		OffenseFirst:      ActionBlock,
		OffenseRepeat:     ActionReport,
		OffensePersistent: ActionReport,
		OffenseDangerous:  ActionReport,
	},
}

// ActionPlan is the engine's decision for one violation. It is transient:
// produced and consumed within a single moderation pass.
type ActionPlan struct {
	Primary        Action           `json:"primary"`
	Severity       models.Severity  `json:"severity"`
	OffenseLevel   OffenseLevel     `json:"offense_level"`
	ViolationCount int              `json:"violation_count"`
	Window         EscalationWindow `json:"window"`

	Emergency         bool   `json:"emergency,omitempty"`
	NotifyAuthorities bool   `json:"notify_authorities,omitempty"`
	LegalCompliance   bool   `json:"legal_compliance,omitempty"`
	Jurisdiction      string `json:"jurisdiction,omitempty"`
	RequiresReporting bool   `json:"requires_reporting,omitempty"`

	ManualReviewRequired bool   `json:"manual_review_required,omitempty"`
	AutoExecute          bool   `json:"auto_execute"`
	Reason               string `json:"reason,omitempty"`
}

// Tags expands the plan into the ordered action-tag list the execution
// orchestrator consumes. Every plan hides the offending comment first; the
// primary action and strike bookkeeping follow.
func (p *ActionPlan) Tags() []string {
	tags := []string{models.TagHideComment}
	switch p.Primary {
	case ActionWarn:
		tags = append(tags, models.TagAddStrike1)
	case ActionMuteTemp:
		tags = append(tags, models.TagMuteTemp, models.TagAddStrike1)
	case ActionMutePermanent:
		tags = append(tags, models.TagMutePermanent, models.TagAddStrike2)
	case ActionBlock:
		tags = append(tags, models.TagBlockUser, models.TagAddStrike2)
	case ActionReport:
		tags = append(tags, models.TagReportToPlatform, models.TagBlockUser, models.TagCheckReincidence)
	}
	if p.ManualReviewRequired {
		tags = append(tags, models.TagRequireManualReview)
	}
	return tags
}

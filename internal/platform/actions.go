// Package platform translates abstract moderation actions into the
// capability each integrated platform actually exposes.
package platform

import "time"

// Supported platform identifiers.
const (
	Twitter = "twitter"
	Discord = "discord"
	Twitch  = "twitch"
	YouTube = "youtube"
)

// Abstract action names, mildest to harshest.
const (
	ActionWarn          = "warn"
	ActionMuteTemp      = "mute_temp"
	ActionMutePermanent = "mute_permanent"
	ActionBlock         = "block"
	ActionReport        = "report"
)

// PlatformAction is the concrete API operation a platform offers for an
// abstract action. Available is false when the platform has no working
// equivalent; callers must fall back to manual handling.
type PlatformAction struct {
	Action    string        `json:"action"`
	Duration  time.Duration `json:"duration,omitempty"`
	Available bool          `json:"available"`
}

var capabilities = map[string]map[string]PlatformAction{
	Twitter: {
		ActionWarn:          {Action: "reply_warning", Available: true},
		ActionMuteTemp:      {Action: "mute_user", Duration: 24 * time.Hour, Available: true},
		ActionMutePermanent: {Action: "mute_user", Available: true},
		ActionBlock:         {Action: "block_user", Available: true},
		ActionReport:        {Action: "report_user", Available: true},
	},
	Discord: {
		ActionWarn:          {Action: "send_warning_dm", Available: true},
		ActionMuteTemp:      {Action: "timeout_user", Duration: time.Hour, Available: true},
		ActionMutePermanent: {Action: "remove_voice_permissions", Available: true},
		ActionBlock:         {Action: "kick_user", Available: true},
		ActionReport:        {Action: "report_to_moderators", Available: true},
	},
	Twitch: {
		ActionWarn:          {Action: "timeout_user", Duration: 60 * time.Second, Available: true},
		ActionMuteTemp:      {Action: "timeout_user", Duration: 10 * time.Minute, Available: true},
		ActionMutePermanent: {Action: "ban_user", Available: true},
		ActionBlock:         {Action: "ban_user", Available: true},
		ActionReport:        {Action: "report_to_twitch", Available: true},
	},
	YouTube: {
		ActionWarn: {Action: "reply_warning", Available: true},
		// The Data API has no mute or block endpoints for channel comments.
		ActionMuteTemp:      {Action: "hide_user_comments", Duration: 24 * time.Hour, Available: false},
		ActionMutePermanent: {Action: "ban_user_from_channel", Available: false},
		ActionBlock:         {Action: "block_user", Available: false},
		ActionReport:        {Action: "report_comment", Available: true},
	},
}

// Actions resolves the abstract action against one platform, keyed by
// platform name so the result can merge into a multi-platform response.
// Unknown platforms and unmapped actions come back unavailable rather
// than erroring.
func Actions(platform, action string) map[string]PlatformAction {
	caps, ok := capabilities[platform]
	if !ok {
		return map[string]PlatformAction{
			platform: {Action: action, Available: false},
		}
	}
	pa, ok := caps[action]
	if !ok {
		pa = PlatformAction{Action: action, Available: false}
	}
	return map[string]PlatformAction{platform: pa}
}

// Supported reports whether the platform has a capability table at all.
func Supported(platform string) bool {
	_, ok := capabilities[platform]
	return ok
}

package session

import "time"

// DefaultTemplate returns a fresh copy of the default session settings.
// A nil value marks a field that some layer has to supply.
//
// Constraints enforced by the API, not by this tool:
// largeSessionEnable requires noEndDate=false and occurrenceType=S, and
// noEndDate=true requires occurrenceType=S.
func DefaultTemplate(now time.Time, tz string) Layer {
	stamp := Format(now)
	return Layer{
		"name": nil,

		// Event details.
		"allowGuest":      true,
		"guestRole":       "participant", // participant, presenter, moderator
		"startTime":       nil,
		"endTime":         nil,
		"created":         stamp,
		"modified":        stamp,
		"createdTimezone": tz,
		"noEndDate":       false,
		"occurrenceType":  nil,
		"recurrenceRule": Layer{
			"recurrenceType":      "weekly",
			"interval":            1,
			"recurrenceEndType":   nil,
			"daysOfTheWeek":       nil,
			"numberOfOccurrences": nil,
			"endDate":             nil,
		},
		"boundaryTime": 15, // early entry minutes: 0, 15, 30, 45, 60
		"description":  "",

		// Session settings.
		"ltiParticipantRole":     "participant",
		"canDownloadRecording":   true,
		"anonymizeRecordings":    false,
		"showProfile":            true,
		"participantCanUseTools": true,
		"canShareAudio":          true,
		"canShareVideo":          true,
		"canPostMessage":         true,
		"canAnnotateWhiteboard":  false,
		"telephonyEnabled":       false,
		"privateChatRestricted":  false,
		"mustBeSupervised":       false,
		"largeSessionEnable":     false,
		"profanityFilterEnabled": true,
	}
}

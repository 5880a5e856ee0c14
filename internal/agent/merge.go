package agent

import (
	"strings"

	"manejobot/internal/models"
)

// MergeSlots layers newly extracted fields over the slots a conversation
// already accumulated. The merge is strictly additive: an empty, "none" or
// otherwise useless value never displaces something the farmer already
// told us in an earlier turn.
func MergeSlots(slots map[string]string, extracted map[string]string) {
	for key, value := range extracted {
		if !usableSlotValue(key, value) {
			continue
		}
		slots[key] = value
	}
}

func usableSlotValue(key, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	if lower == "none" || lower == "null" {
		return false
	}
	// Models sometimes echo the farm area ("2 hectares") into the location
	// slot; an area is not a place.
	if key == models.SlotLocation && strings.Contains(lower, "hectare") {
		return false
	}
	return true
}

// PreserveIntent decides which intent a conversation keeps after a new
// turn. A strong registration intent survives greetings and weak or empty
// classifications, so "bom dia" in the middle of reporting a harvest does
// not reset the flow.
func PreserveIntent(previous, extracted string) string {
	if models.IsStrongIntent(previous) {
		if !models.IsStrongIntent(extracted) || extracted == models.IntentGreeting {
			return previous
		}
	}
	if extracted != "" {
		return extracted
	}
	return previous
}

// Package intent defines the structured utterance handed over by the voice
// platform adapter. Platform-specific request bags are converted into an Event
// at the adapter boundary; nothing past that boundary sees raw platform JSON.
package intent

import (
	"strconv"
	"strings"
)

// Intent names understood by the skill router.
const (
	Launch                 = "LaunchRequest"
	CheckNotification      = "CheckNotification"
	ManualTaskValidation   = "ManualTaskValidation"
	ManualTaskCancellation = "ManualTaskCancellation"
	LaunchWorkflow         = "LaunchWorkflow"
	WorkflowStatus         = "WorkflowStatus"
	Stop                   = "AMAZON.StopIntent"
	No                     = "AMAZON.NoIntent"
)

// Slot names. Each logical slot may arrive under a short alias depending on
// which interaction model produced the utterance.
const (
	SlotWorkflowName   = "workflowName"
	SlotTaskName       = "taskName"
	SlotTime           = "time"
	SlotInstanceStatus = "instanceStatus"
)

var slotAliases = map[string][]string{
	SlotWorkflowName:   {"wkfName"},
	SlotTaskName:       {"tName"},
	SlotTime:           {"t"},
	SlotInstanceStatus: nil,
}

// Event is one user turn: the intent recognised by the voice platform and the
// entity values it extracted.
type Event struct {
	ConversationID string            `json:"conversation_id"`
	Name           string            `json:"intent"`
	Slots          map[string]string `json:"slots,omitempty"`
	Locale         string            `json:"locale,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	DeviceID       string            `json:"device_id,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
}

// Slot returns the normalised value of a named slot, falling back to its
// aliases. Missing slots return an empty string.
func (e Event) Slot(name string) string {
	if v, ok := e.Slots[name]; ok && strings.TrimSpace(v) != "" {
		return NormalizeSlot(v)
	}
	for _, alias := range slotAliases[name] {
		if v, ok := e.Slots[alias]; ok && strings.TrimSpace(v) != "" {
			return NormalizeSlot(v)
		}
	}
	return ""
}

// RawSlot returns a slot value untouched (aliases included). Time slots use
// this so "14:05" keeps its shape.
func (e Event) RawSlot(name string) string {
	if v := strings.TrimSpace(e.Slots[name]); v != "" {
		return v
	}
	for _, alias := range slotAliases[name] {
		if v := strings.TrimSpace(e.Slots[alias]); v != "" {
			return v
		}
	}
	return ""
}

// Language returns the two-letter language of the locale ("fr-FR" -> "fr").
func (e Event) Language() string {
	if len(e.Locale) < 2 {
		return e.Locale
	}
	return strings.ToLower(e.Locale[:2])
}

var numberWords = map[string]int{
	"zéro":   0,
	"un":     1,
	"deux":   2,
	"trois":  3,
	"quatre": 4,
	"cinq":   5,
	"six":    6,
	"sept":   7,
	"huit":   8,
	"neuf":   9,
	"dix":    10,
}

// NormalizeSlot turns a spoken entity value into the compact form workflow
// names are stored under. When the value has several words, French number
// words are replaced by digits; then all spaces are removed.
// "facture deux" -> "facture2", "Payroll" -> "Payroll".
func NormalizeSlot(value string) string {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, " ") {
		return value
	}

	words := strings.Fields(value)
	for i, w := range words {
		if n, ok := numberWords[strings.ToLower(w)]; ok {
			words[i] = strconv.Itoa(n)
		}
	}
	return strings.Join(words, "")
}

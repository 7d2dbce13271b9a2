package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlot(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"single word untouched", "Payroll", "Payroll"},
		{"single number word untouched", "deux", "deux"},
		{"number word replaced", "facture deux", "facture2"},
		{"several number words", "lot un dix", "lot110"},
		{"accented zero", "version zéro", "version0"},
		{"case-insensitive number word", "Lot Trois", "Lot3"},
		{"spaces removed", "validation facture client", "validationfactureclient"},
		{"number word only as a whole word", "unique commande", "uniquecommande"},
		{"trimmed", "  Booking  ", "Booking"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeSlot(tc.input))
		})
	}
}

func TestEvent_Slot(t *testing.T) {
	t.Run("primary name", func(t *testing.T) {
		e := Event{Slots: map[string]string{"workflowName": "facture deux"}}
		assert.Equal(t, "facture2", e.Slot(SlotWorkflowName))
	})

	t.Run("alias", func(t *testing.T) {
		e := Event{Slots: map[string]string{"wkfName": "Booking", "tName": "Valider"}}
		assert.Equal(t, "Booking", e.Slot(SlotWorkflowName))
		assert.Equal(t, "Valider", e.Slot(SlotTaskName))
	})

	t.Run("empty primary falls back to alias", func(t *testing.T) {
		e := Event{Slots: map[string]string{"workflowName": " ", "wkfName": "Booking"}}
		assert.Equal(t, "Booking", e.Slot(SlotWorkflowName))
	})

	t.Run("missing", func(t *testing.T) {
		e := Event{}
		assert.Equal(t, "", e.Slot(SlotTaskName))
		assert.Equal(t, "", e.RawSlot(SlotTime))
	})

	t.Run("raw time slot via alias", func(t *testing.T) {
		e := Event{Slots: map[string]string{"t": "14:05"}}
		assert.Equal(t, "14:05", e.RawSlot(SlotTime))
	})
}

func TestEvent_Language(t *testing.T) {
	assert.Equal(t, "fr", Event{Locale: "fr-FR"}.Language())
	assert.Equal(t, "en", Event{Locale: "EN-us"}.Language())
	assert.Equal(t, "", Event{}.Language())
}

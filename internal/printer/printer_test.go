package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = prevOut, prevErr, prevColor
	})
	return stdout, stderr
}

func TestError(t *testing.T) {
	t.Run("single suggestion", func(t *testing.T) {
		_, stderr := capture(t)

		err := Error("Koordinator unreachable", "Could not list notifications.", []string{"Check koordinator.base_url"})
		require.Error(t, err)
		assert.Equal(t, "Koordinator unreachable", err.Error())
		assert.Equal(t, "Koordinator unreachable\n\nCould not list notifications.\n\nCheck koordinator.base_url\n", stderr.String())
	})

	t.Run("several suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)

		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Error(t, err)
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})

	t.Run("no suggestions", func(t *testing.T) {
		_, stderr := capture(t)

		require.Error(t, Error("Test Error", "Explanation", nil))
		assert.NotContains(t, stderr.String(), "Either")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)

	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Workspace": "BusinessAnalysts",
		"Namespace": "POPUP_USER",
	}, []string{"Fix it"})
	require.Error(t, err)
	assert.Equal(t, "Test Error", err.Error())
	assert.Contains(t, stderr.String(), "  Namespace: POPUP_USER\n  Workspace: BusinessAnalysts\n")
}

func TestMessages(t *testing.T) {
	stdout, _ := capture(t)

	Success("Task validated\n")
	Success("✓ Already prefixed\n")
	Warning("No notifications\n")
	Step("Polling feed\n")
	Spoken("Vous avez une notification.", true)
	Spoken("Au revoir.", false)

	assert.Equal(t,
		"✓ Task validated\n"+
			"✓ Already prefixed\n"+
			"⚠️  No notifications\n"+
			"→ Polling feed\n"+
			"« Vous avez une notification. »\n  (awaiting answer)\n"+
			"« Au revoir. »\n  (session ends)\n",
		stdout.String())
}

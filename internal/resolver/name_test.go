package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EmptyCandidates(t *testing.T) {
	out := Resolve("anything", nil)
	assert.Equal(t, NotFound, out.Kind)
	assert.Empty(t, out.Options)
}

func TestResolve_ExactMatch(t *testing.T) {
	t.Run("exact match wins over closer prefix", func(t *testing.T) {
		out := ResolveName("Alpha", []string{"Alpha", "Alpha2"})
		require.Equal(t, Unique, out.Kind)
		assert.Equal(t, "Alpha", out.Match.Name)
	})

	t.Run("exact match ignores case", func(t *testing.T) {
		out := ResolveName("booking", []string{"Parking", "BOOKING"})
		require.Equal(t, Unique, out.Kind)
		assert.Equal(t, "BOOKING", out.Match.Name)
	})

	t.Run("picks highest version among same-named candidates", func(t *testing.T) {
		candidates := []Candidate{
			{ID: "b1", Name: "Booking", Version: 1},
			{ID: "b3", Name: "Booking", Version: 3},
			{ID: "b2", Name: "Booking", Version: 2},
			{ID: "p1", Name: "Parking", Version: 7},
		}
		out := Resolve("booking", candidates)
		require.Equal(t, Unique, out.Kind)
		assert.Equal(t, "b3", out.Match.ID)
		assert.Equal(t, 3, out.Match.Version)
	})
}

func TestResolve_Property_ExactNameIsUnique(t *testing.T) {
	lists := [][]string{
		{"Invoice", "Invoices", "Payroll"},
		{"a", "b", "c"},
		{"Onboarding", "Offboarding"},
		{"Zeta"},
	}

	for _, names := range lists {
		for _, name := range names {
			out := ResolveName(name, names)
			require.Equal(t, Unique, out.Kind, "resolving %q in %v", name, names)
			assert.Equal(t, name, out.Match.Name)
		}
	}
}

func TestResolve_NearestByDistance(t *testing.T) {
	out := ResolveName("Bouking", []string{"Booking", "Parking"})
	require.Equal(t, Unique, out.Kind)
	assert.Equal(t, "Booking", out.Match.Name)
}

func TestResolve_SameNameTiesCollapse(t *testing.T) {
	candidates := []Candidate{
		{ID: "v1", Name: "Payroll", Version: 1},
		{ID: "v4", Name: "Payroll", Version: 4},
	}
	out := Resolve("Payrol", candidates)
	require.Equal(t, Unique, out.Kind)
	assert.Equal(t, "v4", out.Match.ID)
}

func TestResolve_OverlapTieBreak(t *testing.T) {
	t.Run("overlap narrows tie to one name", func(t *testing.T) {
		// both at distance 1; "abcde" shares 4 characters, "abc" only 3
		out := ResolveName("abcd", []string{"abc", "abcde"})
		require.Equal(t, Unique, out.Kind)
		assert.Equal(t, "abcde", out.Match.Name)
	})

	t.Run("equal overlap stays ambiguous in first-seen order", func(t *testing.T) {
		out := ResolveName("ab", []string{"ay", "ax", "ay"})
		require.Equal(t, Ambiguous, out.Kind)
		assert.Equal(t, []string{"ay", "ax"}, out.Options)
	})
}

func TestResolve_ImplausibleDistanceSkipsTieBreak(t *testing.T) {
	out := ResolveName("a", []string{"xyz", "uvw", "xyz"})
	require.Equal(t, Ambiguous, out.Kind)
	assert.Equal(t, []string{"xyz", "uvw"}, out.Options)
}

func TestResolver_PlausibilitySlack(t *testing.T) {
	names := []string{"abc", "abcde"}

	out := Resolver{}.Resolve("abcd", FromNames(names))
	require.Equal(t, Unique, out.Kind)

	// a large slack makes every distance implausible
	out = Resolver{PlausibilitySlack: 10}.Resolve("abcd", FromNames(names))
	require.Equal(t, Ambiguous, out.Kind)
	assert.Equal(t, names, out.Options)
}

func TestDistance(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"Booking", "booking", 0},
		{"Bouking", "Booking", 1},
		{"flaw", "lawn", 2},
		{"scénario", "scenario", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"/"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, Distance(tc.a, tc.b))
			assert.Equal(t, tc.want, Distance(tc.b, tc.a), "distance must be symmetric")
		})
	}
}

func TestDistance_Identity(t *testing.T) {
	for _, s := range []string{"", "a", "Workflow 12", "Validation Facture"} {
		assert.Equal(t, 0, Distance(s, s))
	}
}

func TestCommonCharacters(t *testing.T) {
	assert.Equal(t, 3, CommonCharacters("abc", "abcd"))
	assert.Equal(t, 3, CommonCharacters("abcd", "abc"))
	assert.Equal(t, 0, CommonCharacters("xyz", "abc"))
	assert.Equal(t, 3, CommonCharacters("AAB", "abc"), "repeated runes are counted each time")
	assert.Equal(t, 1, CommonCharacters("a", "AA"))
	assert.Equal(t, 0, CommonCharacters("", "abc"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "unique", Unique.String())
	assert.Equal(t, "ambiguous", Ambiguous.String())
	assert.Equal(t, "not_found", NotFound.String())
}

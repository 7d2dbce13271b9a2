package resolver

import (
	"strings"
	"unicode/utf8"
)

// Candidate is a named backend entity (workflow definition, task instance)
// eligible for resolution. Several candidates may share a name when the
// backend holds more than one version of the same definition.
type Candidate struct {
	ID      string
	Name    string
	Version int
}

// Kind tags the variant held by an Outcome.
type Kind int

const (
	// NotFound means the candidate list was empty.
	NotFound Kind = iota
	// Unique means exactly one distinct name was selected.
	Unique
	// Ambiguous means several distinct names remain and the user must choose.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not_found"
	}
}

// Outcome is the result of resolving a spoken name against a candidate list.
// Match is set for Unique; Options is set for Ambiguous and holds deduplicated
// names in the order they first appear in the candidate list.
type Outcome struct {
	Kind    Kind
	Match   Candidate
	Options []string
}

// DefaultPlausibilitySlack is added to the minimum edit distance before it is
// compared against the spoken name's length. A tie is only broken by character
// overlap when len(spoken) >= minDist + slack.
const DefaultPlausibilitySlack = 0

// Resolver maps a noisy, user-spoken name to one candidate.
// The zero value uses DefaultPlausibilitySlack.
type Resolver struct {
	PlausibilitySlack int
}

// Resolve resolves spoken against candidates with the default settings.
func Resolve(spoken string, candidates []Candidate) Outcome {
	return Resolver{PlausibilitySlack: DefaultPlausibilitySlack}.Resolve(spoken, candidates)
}

// ResolveName resolves spoken against a plain list of names.
func ResolveName(spoken string, names []string) Outcome {
	return Resolve(spoken, FromNames(names))
}

// FromNames wraps plain names as candidates whose ID is the name itself.
func FromNames(names []string) []Candidate {
	candidates := make([]Candidate, 0, len(names))
	for _, n := range names {
		candidates = append(candidates, Candidate{ID: n, Name: n})
	}
	return candidates
}

// Resolve picks the intended candidate:
//  1. a case-insensitive exact match on exactly one distinct name wins;
//  2. otherwise the candidates at minimum edit distance are kept;
//  3. one distinct name left wins;
//  4. several names left and a plausible distance: keep the names with the most
//     characters in common with the spoken name;
//  5. anything still tied is Ambiguous.
//
// When several candidates share the winning name, the highest version is returned.
func (r Resolver) Resolve(spoken string, candidates []Candidate) Outcome {
	if len(candidates) == 0 {
		return Outcome{Kind: NotFound}
	}

	var exact []Candidate
	for _, c := range candidates {
		if strings.EqualFold(c.Name, spoken) {
			exact = append(exact, c)
		}
	}
	if len(distinctNames(exact)) == 1 {
		return Outcome{Kind: Unique, Match: highestVersion(exact)}
	}

	minDist := -1
	distances := make([]int, len(candidates))
	for i, c := range candidates {
		distances[i] = Distance(spoken, c.Name)
		if minDist < 0 || distances[i] < minDist {
			minDist = distances[i]
		}
	}

	var tied []Candidate
	for i, c := range candidates {
		if distances[i] == minDist {
			tied = append(tied, c)
		}
	}

	names := distinctNames(tied)
	if len(names) == 1 {
		return Outcome{Kind: Unique, Match: highestVersion(tied)}
	}

	if utf8.RuneCountInString(spoken) < minDist+r.PlausibilitySlack {
		return Outcome{Kind: Ambiguous, Options: names}
	}

	maxCommon := -1
	overlaps := make([]int, len(tied))
	for i, c := range tied {
		overlaps[i] = CommonCharacters(spoken, c.Name)
		if overlaps[i] > maxCommon {
			maxCommon = overlaps[i]
		}
	}

	var best []Candidate
	for i, c := range tied {
		if overlaps[i] == maxCommon {
			best = append(best, c)
		}
	}

	names = distinctNames(best)
	if len(names) == 1 {
		return Outcome{Kind: Unique, Match: highestVersion(best)}
	}
	return Outcome{Kind: Ambiguous, Options: names}
}

// distinctNames deduplicates by exact name, preserving first-seen order.
func distinctNames(candidates []Candidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	var names []string
	for _, c := range candidates {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	return names
}

// highestVersion returns the candidate with the greatest version.
// Ties keep the first one seen.
func highestVersion(candidates []Candidate) Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Version > best.Version {
			best = c
		}
	}
	return best
}

package variables

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSubstitute_IdempotentOnGroundValues checks spec invariant 4:
// substitute(substitute(v, cfg, ns), cfg, ns) == substitute(v, cfg, ns) for
// any v that contains no variable reference (a "ground" value has nothing
// left to substitute, so a second pass must be a no-op).
func TestSubstitute_IdempotentOnGroundValues(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	// gen.AlphaString never produces '$', so these strings never look like
	// a variable reference to the substitutor.
	properties.Property("substituting a ground string twice matches substituting it once", prop.ForAll(
		func(s string) bool {
			st := New(nil, nil)
			once, err := st.Substitute(s, "")
			if err != nil {
				return false
			}
			twice, err := st.Substitute(once, "")
			if err != nil {
				return false
			}
			return once == twice
		},
		gen.AlphaString(),
	))

	properties.Property("substituting a ground nested map twice matches substituting it once", prop.ForAll(
		func(a, b string) bool {
			st := New(nil, nil)
			v := map[string]any{"x": a, "nested": map[string]any{"y": b}}
			once, err := st.Substitute(v, "")
			if err != nil {
				return false
			}
			twice, err := st.Substitute(once, "")
			if err != nil {
				return false
			}
			om, ok1 := once.(map[string]any)
			tm, ok2 := twice.(map[string]any)
			if !ok1 || !ok2 {
				return false
			}
			return om["x"] == tm["x"] && om["nested"].(map[string]any)["y"] == tm["nested"].(map[string]any)["y"]
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestEffectiveKey_NamespacesNeverCollide checks the namespace-isolation
// property behind spec §4.9: two distinct namespaces never resolve a
// variable of the same bare name to each other's value.
func TestEffectiveKey_NamespacesNeverCollide(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("distinct namespaces produce distinct effective keys for the same variable name", prop.ForAll(
		func(nsA, nsB, name string) bool {
			if nsA == nsB {
				return true
			}
			keyA, err := EffectiveKey(nsA, name)
			if err != nil {
				return false
			}
			keyB, err := EffectiveKey(nsB, name)
			if err != nil {
				return false
			}
			return keyA != keyB
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("a namespaced substitution only ever resolves from its own namespace's config values", prop.ForAll(
		func(nsA, nsB, valA, valB string) bool {
			if nsA == nsB {
				return true
			}
			keyA, err := EffectiveKey(nsA, "VAR")
			if err != nil {
				return false
			}
			keyB, err := EffectiveKey(nsB, "VAR")
			if err != nil {
				return false
			}
			st := New(map[string]string{keyA: valA, keyB: valB}, nil)
			gotA, err := st.Substitute("${VAR}", nsA)
			if err != nil {
				return false
			}
			gotB, err := st.Substitute("${VAR}", nsB)
			if err != nil {
				return false
			}
			return gotA == valA && gotB == valB
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestFindRequiredVariables_MatchesWhatSubstituteWouldQuery checks part of
// spec invariant 5: every effective key Substitute looks up is reported by
// FindRequiredVariables, and no key is reported twice.
func TestFindRequiredVariables_MatchesWhatSubstituteWouldQuery(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("every key FindRequiredVariables reports is queried by an equivalent Substitute call", prop.ForAll(
		func(names []string) bool {
			if len(names) == 0 {
				return true
			}
			loader := mapLoader{}
			v := make(map[string]any, len(names))
			for i, n := range names {
				loader[n] = "v"
				v[n] = "${" + n + "}"
			}
			keys, err := FindRequiredVariables(v, "")
			if err != nil {
				return false
			}
			st := New(nil, []Loader{loader})
			if _, err := st.Substitute(v, ""); err != nil {
				return false
			}
			seen := make(map[string]bool, len(keys))
			for _, k := range keys {
				if seen[k] {
					return false // must be deduplicated
				}
				seen[k] = true
			}
			for _, n := range names {
				key, err := EffectiveKey("", n)
				if err != nil || !seen[key] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.Identifier()),
	))

	properties.TestingRun(t)
}

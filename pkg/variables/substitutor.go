// Package variables implements the namespaced ${NAME}/$NAME substitution
// engine (spec §4.2): recursive substitution over arbitrary JSON-like
// values, a namespace transform that keeps one manual's variables from
// leaking into another's, and a companion discovery walk used to report a
// deployment's required environment ahead of time.
package variables

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"goa.design/utcp/pkg/utcperr"
)

// Loader resolves a variable by its already-namespaced effective key. The
// shipped implementation is Dotenv; callers may register others through
// pkg/kindregistry at the client's loader extension point.
type Loader interface {
	// Get returns the value for key and true, or "" and false if absent.
	Get(key string) (string, bool)
}

// namePattern matches the NAME portion of both ${NAME} and $NAME forms.
var namePattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}|\$([A-Za-z0-9_]+)`)

// namespacePattern validates a namespace string before it is used to build
// effective keys.
var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Substitutor resolves variable references using the priority order:
// config.variables, then each loader in order, then the process
// environment.
type Substitutor struct {
	// ConfigVariables is config.variables, consulted first.
	ConfigVariables map[string]string
	// Loaders is config.load_variables_from, consulted in order after
	// ConfigVariables and before the process environment.
	Loaders []Loader
}

// New builds a Substitutor over the given config variables and loaders.
func New(configVariables map[string]string, loaders []Loader) *Substitutor {
	return &Substitutor{ConfigVariables: configVariables, Loaders: loaders}
}

// EffectiveKey applies the namespace transform: each underscore in ns is
// doubled, then the result is prefixed as "<ns>_<name>". An empty namespace
// is used verbatim (no prefix), matching the self-reference-free resolution
// of config.variables described in spec §9.
func EffectiveKey(namespace, name string) (string, error) {
	if !namespacePattern.MatchString(namespace) {
		return "", &utcperr.ConfigInvalidError{Reason: fmt.Sprintf("namespace %q contains characters outside [A-Za-z0-9_]", namespace)}
	}
	if namespace == "" {
		return name, nil
	}
	doubled := doubleUnderscores(namespace)
	return doubled + "_" + name, nil
}

func doubleUnderscores(s string) string {
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		out = append(out, s[i])
		if s[i] == '_' {
			out = append(out, '_')
		}
	}
	return string(out)
}

// resolve looks up the value for an effective key through the full priority
// chain, failing with VariableNotFoundError if none of the sources has it.
func (s *Substitutor) resolve(effectiveKey string) (string, error) {
	if s.ConfigVariables != nil {
		if v, ok := s.ConfigVariables[effectiveKey]; ok {
			return v, nil
		}
	}
	for _, l := range s.Loaders {
		if v, ok := l.Get(effectiveKey); ok {
			return v, nil
		}
	}
	if v, ok := os.LookupEnv(effectiveKey); ok {
		return v, nil
	}
	return "", &utcperr.VariableNotFoundError{EffectiveKey: effectiveKey}
}

// Substitute walks v (any combination of string, []any, map[string]any, or
// primitives) replacing every ${NAME}/$NAME reference found inside strings.
// Non-string, non-container values pass through unchanged.
func (s *Substitutor) Substitute(v any, namespace string) (any, error) {
	switch val := v.(type) {
	case string:
		return s.substituteString(val, namespace)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			sub, err := s.Substitute(item, namespace)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			sub, err := s.Substitute(item, namespace)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return v, nil
	}
}

func (s *Substitutor) substituteString(str, namespace string) (string, error) {
	var firstErr error
	result := namePattern.ReplaceAllStringFunc(str, func(match string) string {
		if firstErr != nil {
			return match
		}
		name := namePattern.FindStringSubmatch(match)
		key := name[1]
		if key == "" {
			key = name[2]
		}
		effective, err := EffectiveKey(namespace, key)
		if err != nil {
			firstErr = err
			return match
		}
		value, err := s.resolve(effective)
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// FindRequiredVariables walks v the same way Substitute does but, instead of
// resolving references, collects the ordered, duplicate-free set of
// effective keys that a Substitute call would query.
func FindRequiredVariables(v any, namespace string) ([]string, error) {
	seen := make(map[string]bool)
	var ordered []string
	var walk func(any) error
	walk = func(v any) error {
		switch val := v.(type) {
		case string:
			for _, match := range namePattern.FindAllStringSubmatch(val, -1) {
				key := match[1]
				if key == "" {
					key = match[2]
				}
				effective, err := EffectiveKey(namespace, key)
				if err != nil {
					return err
				}
				if !seen[effective] {
					seen[effective] = true
					ordered = append(ordered, effective)
				}
			}
			return nil
		case map[string]any:
			// Deterministic traversal order so two calls over the same value
			// never disagree, even though map iteration in Go doesn't.
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if err := walk(val[k]); err != nil {
					return err
				}
			}
			return nil
		case []any:
			for _, item := range val {
				if err := walk(item); err != nil {
					return err
				}
			}
			return nil
		default:
			return nil
		}
	}
	if err := walk(v); err != nil {
		return nil, err
	}
	return ordered, nil
}

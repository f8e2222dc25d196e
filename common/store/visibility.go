package store

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/google/cel-go/cel"
)

// VisibilityEvaluator decides whether a cell's visibility label is satisfied
// by a caller's authorization set.
//
// Labels are boolean expressions over opaque tokens: a bare token requires
// that authorization, '&' conjoins, '|' disjoins, parentheses group. The
// expression is translated into a CEL membership expression over the caller's
// authorization list and compiled once per distinct label; compiled programs
// are cached.
type VisibilityEvaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewVisibilityEvaluator builds an evaluator with an empty program cache.
func NewVisibilityEvaluator() (*VisibilityEvaluator, error) {
	env, err := cel.NewEnv(cel.Variable("auths", cel.ListType(cel.StringType)))
	if err != nil {
		return nil, fmt.Errorf("create visibility CEL environment: %w", err)
	}
	return &VisibilityEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Visible reports whether auths satisfy the label. The empty label is visible
// to every caller.
func (e *VisibilityEvaluator) Visible(label string, auths Authorizations) (bool, error) {
	if label == "" {
		return true, nil
	}

	prg, err := e.program(label)
	if err != nil {
		return false, err
	}

	authList := make([]string, len(auths))
	copy(authList, auths)

	out, _, err := prg.Eval(map[string]interface{}{"auths": authList})
	if err != nil {
		return false, fmt.Errorf("evaluate visibility %q: %w", label, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("visibility %q did not evaluate to a boolean", label)
	}
	return result, nil
}

// Validate rejects labels that cannot be compiled. Writes call this so that a
// malformed label fails the write instead of poisoning later reads.
func (e *VisibilityEvaluator) Validate(label string) error {
	if label == "" {
		return nil
	}
	_, err := e.program(label)
	return err
}

func (e *VisibilityEvaluator) program(label string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[label]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	expr, err := translateLabel(label)
	if err != nil {
		return nil, err
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid visibility label %q: %w", label, issues.Err())
	}

	prg, err = e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("compile visibility label %q: %w", label, err)
	}

	e.mu.Lock()
	e.cache[label] = prg
	e.mu.Unlock()

	return prg, nil
}

// translateLabel rewrites a visibility label into a CEL expression: each
// token becomes a membership test against auths, '&' and '|' become the CEL
// boolean operators, parentheses pass through.
func translateLabel(label string) (string, error) {
	var out strings.Builder
	var token strings.Builder

	flush := func() {
		if token.Len() > 0 {
			fmt.Fprintf(&out, "(%q in auths)", token.String())
			token.Reset()
		}
	}

	for _, r := range label {
		switch {
		case isTokenRune(r):
			token.WriteRune(r)
		case r == '&':
			flush()
			out.WriteString(" && ")
		case r == '|':
			flush()
			out.WriteString(" || ")
		case r == '(' || r == ')':
			flush()
			out.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			return "", fmt.Errorf("invalid visibility label %q: unexpected character %q", label, r)
		}
	}
	flush()

	expr := out.String()
	if strings.TrimSpace(expr) == "" {
		return "", fmt.Errorf("invalid visibility label %q: no tokens", label)
	}
	return expr, nil
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) ||
		r == '_' || r == '.' || r == ':' || r == '/' || r == '-'
}

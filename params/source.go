package params

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/cluster"
)

// Source is implemented by strategies that can supply values for tunable
// parameters during resolution.
type Source interface {
	// Value returns the caller-supplied value for the given parameter.
	// The boolean reports whether the source has a value for it; when
	// false, the parameter keeps its current (defaulted) value.
	Value(spec cluster.ParamSpec) (interface{}, bool, error)
}

// MapSource supplies tunable parameter values from a plain mapping. Keys
// that do not name a declared tunable parameter are never consulted.
type MapSource map[string]interface{}

// Value implements Source.
func (m MapSource) Value(spec cluster.ParamSpec) (interface{}, bool, error) {
	v, ok := m[spec.Name]
	return v, ok, nil
}

// PromptSource supplies tunable parameter values by driving an interactive
// prompt loop, one parameter at a time, seeding each prompt with the
// declared default. An empty answer keeps the default.
type PromptSource struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptSource creates a prompt-backed source reading answers from in
// and writing prompts to out.
func NewPromptSource(in io.Reader, out io.Writer) *PromptSource {
	return &PromptSource{in: bufio.NewReader(in), out: out}
}

// Value implements Source.
func (p *PromptSource) Value(spec cluster.ParamSpec) (interface{}, bool, error) {
	fmt.Fprintf(p.out, "%s (%s)", spec.Name, spec.Type)
	if spec.Description != "" {
		fmt.Fprintf(p.out, " - %s", spec.Description)
	}
	fmt.Fprintln(p.out)

	prompt := "value"
	if len(spec.Choices) != 0 {
		prompt += fmt.Sprintf(" [%s]", strings.Join(spec.Choices, "|"))
	}
	if spec.Default != nil {
		prompt += fmt.Sprintf(" (default: %v)", spec.Default)
	}
	fmt.Fprintf(p.out, "%s: ", prompt)

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, false, xerrors.Errorf("read prompt answer: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return nil, false, nil
	}
	return answer, true, nil
}

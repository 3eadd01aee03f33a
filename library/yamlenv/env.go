package yamlenv

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ${NAME} или ${NAME:default}
var envPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)(:(.*))?\}$`)

// Env — лист конфигурации, значение которого может быть переопределено переменной окружения.
type Env[T any] struct {
	Value T
	Name  string
}

func (e *Env[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar value", node.Line)
	}

	raw := node.Value

	if m := envPattern.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
		e.Name = m[1]

		v, ok := os.LookupEnv(m[1])
		switch {
		case ok:
			raw = v
		case m[2] != "":
			raw = m[3]
		default:
			return fmt.Errorf("line %d: environment variable %s is not set", node.Line, m[1])
		}
	}

	var out T
	if err := (&yaml.Node{Kind: yaml.ScalarNode, Value: raw}).Decode(&out); err != nil {
		return fmt.Errorf("line %d: decode %q: %w", node.Line, raw, err)
	}

	e.Value = out

	return nil
}

func (e *Env[T]) String() string {
	if e == nil {
		return "<nil>"
	}

	return fmt.Sprintf("%v", e.Value)
}

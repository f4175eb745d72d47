package output

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	exprPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	varPattern  = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_\.]*)\}`)
)

// TemplateEngine renders one-line templates and evaluates filters with
// expr. It supports simple variables ({name}) and expr expressions
// ({{ len(Args) }}).
type TemplateEngine struct {
	mu           sync.Mutex
	programCache map[string]*vm.Program
}

// NewTemplateEngine creates a new template engine.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		programCache: make(map[string]*vm.Program),
	}
}

// Render renders a template string with the given data. Expressions are
// evaluated first, then simple variables.
func (t *TemplateEngine) Render(template string, data map[string]any) (string, error) {
	if template == "" {
		return "", nil
	}
	if data == nil {
		data = make(map[string]any)
	}

	var lastErr error
	result := exprPattern.ReplaceAllStringFunc(template, func(match string) string {
		value, err := t.Eval(strings.TrimSpace(match[2:len(match)-2]), data)
		if err != nil {
			lastErr = err
			return match
		}
		return fmt.Sprint(value)
	})
	if lastErr != nil {
		return "", fmt.Errorf("failed to evaluate expression: %w", lastErr)
	}

	result = varPattern.ReplaceAllStringFunc(result, func(match string) string {
		value, err := resolveVariable(match[1:len(match)-1], data)
		if err != nil {
			lastErr = err
			return match
		}
		return fmt.Sprint(value)
	})
	if lastErr != nil {
		return "", fmt.Errorf("failed to resolve variable: %w", lastErr)
	}

	return result, nil
}

// Eval evaluates an expr expression against data.
func (t *TemplateEngine) Eval(expression string, data map[string]any) (any, error) {
	program, err := t.compile(expression, data)
	if err != nil {
		return nil, err
	}

	result, err := expr.Run(program, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute expression '%s': %w", expression, err)
	}
	return result, nil
}

// Match evaluates a boolean expression against data.
func (t *TemplateEngine) Match(expression string, data map[string]any) (bool, error) {
	value, err := t.Eval(expression, data)
	if err != nil {
		return false, err
	}
	ok, isBool := value.(bool)
	if !isBool {
		return false, fmt.Errorf("expression '%s' returned %T, not bool", expression, value)
	}
	return ok, nil
}

func (t *TemplateEngine) compile(expression string, env map[string]any) (*vm.Program, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if program, ok := t.programCache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression '%s': %w", expression, err)
	}
	t.programCache[expression] = program
	return program, nil
}

// resolveVariable resolves a variable path like "name" or "args.pool".
func resolveVariable(path string, data map[string]any) (any, error) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot access field '%s' on non-map type", part)
		}
		current, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("variable '%s' not found", path)
		}
	}
	return current, nil
}

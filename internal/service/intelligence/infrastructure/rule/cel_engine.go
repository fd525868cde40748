// internal/service/intelligence/infrastructure/rule/cel_engine.go
package rule

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"promo-intelligence/internal/service/intelligence/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 表达式可以引用 month、day、weekday 三个整型变量，编译结果按表达式缓存。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELRuleEngine 创建规则引擎，声明日历变量。
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("month", cel.IntType),
		cel.Variable("day", cel.IntType),
		cel.Variable("weekday", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}
	return &CELRuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

// Evaluate 实现了 domain.RuleEngine 接口。表达式必须返回 bool。
func (e *CELRuleEngine) Evaluate(expression string, fact domain.Fact) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}(fact))
	if err != nil {
		return false, errors.Wrapf(err, "eval %q", expression)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("rule %q returned %T, want bool", expression, out.Value())
	}
	return result, nil
}

func (e *CELRuleEngine) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile %q", expression)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("rule %q must be boolean, got %v", expression, ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "program %q", expression)
	}

	e.mu.Lock()
	e.programs[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

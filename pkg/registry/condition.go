package registry

import (
	"github.com/google/cel-go/cel"
)

// EvaluateCondition runs a ToolDefinition's optional CEL condition over the
// request's parameters and the session's current sensitivity rank. A tool
// with no condition always evaluates true. A CEL compile or evaluation
// error fails closed: the condition is treated as true, i.e. the executor
// takes the more restrictive branch that depends on it.
func EvaluateCondition(expr string, params map[string]interface{}, currentSensitivity Sensitivity) bool {
	if expr == "" {
		return true
	}

	env, err := cel.NewEnv(
		cel.Variable("params", cel.DynType),
		cel.Variable("sensitivity", cel.StringType),
		cel.Variable("sensitivity_rank", cel.IntType),
	)
	if err != nil {
		return true
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return true
	}

	program, err := env.Program(ast)
	if err != nil {
		return true
	}

	out, _, err := program.Eval(map[string]interface{}{
		"params":           params,
		"sensitivity":      string(currentSensitivity),
		"sensitivity_rank": int64(Rank(currentSensitivity)),
	})
	if err != nil {
		return true
	}

	result, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return result
}

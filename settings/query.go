package settings

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Query evaluates an expr-lang expression against the canonical document of
// s. Besides the document keys the environment offers the derived values
// mqtt_host, mqtt_port, auto_restart_enabled and effective_auto_restart_period.
func (s *Settings) Query(expression string) (any, error) {
	env, ok := s.Document().Interface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings document is not an object")
	}
	env["mqtt_host"] = s.MQTTServer()
	env["mqtt_port"] = int(s.MQTTPort())
	env["auto_restart_enabled"] = s.IsAutoRestartEnabled()
	env["effective_auto_restart_period"] = int(s.AutoRestartPeriod())

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	return out, nil
}

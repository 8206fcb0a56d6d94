package skill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tjfontaine/hybrid-agent/internal/procexec"
)

// DefaultTimeout is the wall-clock budget of one script run.
const DefaultTimeout = 15 * time.Second

// ArgumentsField is the parameter whose value is split into the script's argv.
const ArgumentsField = "arguments"

// ScriptSkill runs a script with an interpreter. Skills are always unsafe:
// they execute arbitrary local code.
type ScriptSkill struct {
	name        string
	description string
	dir         string
	script      string
	runtime     Runtime
	timeout     time.Duration
	logger      *slog.Logger
}

func (s *ScriptSkill) Name() string        { return s.name }
func (s *ScriptSkill) Description() string { return s.description }
func (s *ScriptSkill) IsUnsafe() bool      { return true }

// Dir returns the skill's directory.
func (s *ScriptSkill) Dir() string { return s.dir }

// Script returns the path of the script that Execute runs.
func (s *ScriptSkill) Script() string { return s.script }

// Parameters declares a single free-form argument string.
func (s *ScriptSkill) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			ArgumentsField: map[string]any{
				"type":        "string",
				"description": "Space-separated arguments to pass to the script",
			},
		},
	}
}

// Execute runs the script and returns its trimmed output or an error text.
func (s *ScriptSkill) Execute(ctx context.Context, args json.RawMessage) string {
	params := flattenArgs(args)

	argv := make([]string, 0, len(s.runtime.Args)+2)
	argv = append(argv, s.runtime.Args...)
	argv = append(argv, s.script)
	argv = append(argv, strings.Fields(params[ArgumentsField])...)

	res := procexec.Run(ctx, procexec.Command{
		Path:    s.runtime.Program,
		Args:    argv,
		Dir:     s.dir,
		Timeout: s.timeout,
	})

	s.logger.Debug("skill executed",
		slog.String("skill", s.name),
		slog.Int("exit_code", res.ExitCode),
		slog.Duration("duration", res.Duration))

	switch {
	case res.Err != nil:
		return fmt.Sprintf("Error launching %s: %v. Ensure %s is in your PATH.", s.runtime.Label, res.Err, s.runtime.Program)
	case res.TimedOut:
		return fmt.Sprintf("Error: Script timed out after %s.", seconds(s.timeout))
	case res.Cancelled:
		return "Error: Script cancelled."
	case res.ExitCode != 0:
		return fmt.Sprintf("Error (Exit Code %d): %s", res.ExitCode, res.Stderr)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return "Script executed successfully (No Output)."
	}
	return out
}

// flattenArgs turns a JSON object into a string map. Strings keep their
// value, other JSON values keep their literal text. Anything that is not an
// object is passed through under ArgumentsField.
func flattenArgs(args json.RawMessage) map[string]string {
	out := map[string]string{}
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 {
		return out
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || obj == nil {
		out[ArgumentsField] = string(trimmed)
		return out
	}
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		if string(v) == "null" {
			out[k] = ""
			continue
		}
		out[k] = string(v)
	}
	return out
}

func seconds(d time.Duration) string {
	if d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}

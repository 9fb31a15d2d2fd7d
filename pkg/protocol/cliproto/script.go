// Package cliproto implements protocol.Protocol for the "cli" call-template
// kind (spec §4.8): composing a multi-step shell script with argument and
// cross-command output placeholders, then spawning it as a single
// subprocess so steps share working directory and environment. Subprocess
// lifecycle (stdout/stderr capture, kill-on-timeout) follows the same shape
// as the teacher's features/mcp/runtime/stdiocaller.go subprocess handling,
// adapted from a persistent JSON-RPC session to a one-shot scripted run.
package cliproto

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"goa.design/utcp/pkg/utcptypes"
)

var (
	argPlaceholderPattern = regexp.MustCompile(`UTCP_ARG_([A-Za-z0-9_]+)_UTCP_END`)
	cmdOutputPattern      = regexp.MustCompile(`\$\{?CMD_(\d+)_OUTPUT\}?`)
)

// substitutePlaceholders replaces UTCP_ARG_<name>_UTCP_END with the string
// form of args[name], or the MISSING_ARG_<name> sentinel (plus an
// error-level log entry) when the name is absent — per spec §4.8, this never fails the
// call; shell quoting is preserved either way.
func substitutePlaceholders(command string, args map[string]any, warn func(name string)) string {
	return argPlaceholderPattern.ReplaceAllStringFunc(command, func(match string) string {
		name := argPlaceholderPattern.FindStringSubmatch(match)[1]
		if v, ok := args[name]; ok {
			return fmt.Sprint(v)
		}
		if warn != nil {
			warn(name)
		}
		return "MISSING_ARG_" + name
	})
}

// isWindows reports whether the POSIX or PowerShell skeleton should be
// used. Exposed as a var so tests can force either branch.
var isWindows = func() bool { return runtime.GOOS == "windows" }

// appendDefault reports whether step i (0-indexed, of n total) appends to
// the final output by default: the last step defaults to true, all others
// to false.
func appendDefault(i, n int) bool { return i == n-1 }

// assembleScript builds the single-subprocess script for every step,
// substituting argument placeholders per step and $CMD_<i>_OUTPUT
// references against prior steps' capture variables.
func assembleScript(steps []utcptypes.CommandStep, args map[string]any, warn func(name string)) string {
	if isWindows() {
		return assembleWindowsScript(steps, args, warn)
	}
	return assemblePosixScript(steps, args, warn)
}

func assemblePosixScript(steps []utcptypes.CommandStep, args map[string]any, warn func(name string)) string {
	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	for i, step := range steps {
		cmd := substitutePlaceholders(step.Command, args, warn)
		cmd = cmdOutputPattern.ReplaceAllStringFunc(cmd, func(m string) string {
			n := cmdOutputPattern.FindStringSubmatch(m)[1]
			return fmt.Sprintf("${CMD_%s_OUTPUT}", n)
		})
		fmt.Fprintf(&b, "CMD_%d_OUTPUT=$(%s 2>&1)\n", i, cmd)
	}
	for i, step := range steps {
		shouldAppend := appendDefault(i, len(steps))
		if step.AppendToFinalOutput != nil {
			shouldAppend = *step.AppendToFinalOutput
		}
		if shouldAppend {
			fmt.Fprintf(&b, "echo \"${CMD_%d_OUTPUT}\"\n", i)
		}
	}
	return b.String()
}

func assembleWindowsScript(steps []utcptypes.CommandStep, args map[string]any, warn func(name string)) string {
	var b strings.Builder
	b.WriteString("$ErrorActionPreference = 'Stop'\n")
	for i, step := range steps {
		cmd := substitutePlaceholders(step.Command, args, warn)
		cmd = cmdOutputPattern.ReplaceAllStringFunc(cmd, func(m string) string {
			n := cmdOutputPattern.FindStringSubmatch(m)[1]
			return "$CMD_" + n + "_OUTPUT"
		})
		fmt.Fprintf(&b, "$CMD_%d_OUTPUT = %s 2>&1 | Out-String\n", i, cmd)
	}
	for i, step := range steps {
		appendOut := appendDefault(i, len(steps))
		if step.AppendToFinalOutput != nil {
			appendOut = *step.AppendToFinalOutput
		}
		if appendOut {
			fmt.Fprintf(&b, "Write-Output $CMD_%d_OUTPUT\n", i)
		}
	}
	return b.String()
}


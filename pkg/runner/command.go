package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a command line.
type Kind int

const (
	// KindRepeat is an empty line: run the previous command again.
	KindRepeat Kind = iota
	// KindInvoke runs an operation and waits for it.
	KindInvoke
	// KindStart runs an operation on a detached worker.
	KindStart
	// KindEvaluate evaluates an expression against the kernel state.
	KindEvaluate
	// KindMeta is a $-prefixed kernel command.
	KindMeta
)

// Meta commands.
const (
	MetaExit    = "$EXIT"
	MetaUnits   = "$UNITS"
	MetaWorkers = "$WORKERS"
	MetaState   = "$STATE"
	MetaCancel  = "$CANCEL"
	MetaStatus  = "$STATUS"
	MetaHelp    = "$HELP"
	MetaGraph   = "$GRAPH"
)

var metas = map[string]bool{
	MetaExit: true, MetaUnits: true, MetaWorkers: true, MetaState: true,
	MetaCancel: true, MetaStatus: true, MetaHelp: true, MetaGraph: true,
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformed      = errors.New("malformed command")
)

// Command is one parsed input line.
type Command struct {
	Kind       Kind
	Operation  string
	Unit       string // empty means the previously used unit
	Expression string
	Meta       string
	Args       []string
}

// String renders the command back in its line form.
func (c Command) String() string {
	switch c.Kind {
	case KindInvoke, KindStart:
		prefix := ""
		if c.Kind == KindStart {
			prefix = "&"
		}
		if c.Unit == "" {
			return prefix + c.Operation
		}
		return prefix + c.Operation + "\t" + c.Unit
	case KindEvaluate:
		return "\t" + c.Expression
	case KindMeta:
		return strings.Join(append([]string{c.Meta}, c.Args...), " ")
	}
	return ""
}

// Parse reads one line of the command protocol:
//
//	op<TAB>unit     invoke op on unit
//	op              invoke op on the previous unit
//	&op<TAB>unit    start op on a detached worker
//	<TAB>expr       evaluate an expression
//	=expr           evaluate an expression (for terminals that complete on tab)
//	$CMD args...    kernel command
//	(empty)         repeat the previous command
//
// Whitespace separates op and unit when the line holds no tab.
func Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")

	if strings.HasPrefix(line, "\t") {
		expr := strings.TrimSpace(line)
		if expr == "" {
			return Command{Kind: KindRepeat}, nil
		}
		return Command{Kind: KindEvaluate, Expression: expr}, nil
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Command{Kind: KindRepeat}, nil
	}

	if strings.HasPrefix(trimmed, "=") {
		expr := strings.TrimSpace(trimmed[1:])
		if expr == "" {
			return Command{}, fmt.Errorf("%w: empty expression", ErrMalformed)
		}
		return Command{Kind: KindEvaluate, Expression: expr}, nil
	}

	if strings.HasPrefix(trimmed, "$") {
		fields := strings.Fields(trimmed)
		meta := strings.ToUpper(fields[0])
		if !metas[meta] {
			return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
		}
		return Command{Kind: KindMeta, Meta: meta, Args: fields[1:]}, nil
	}

	kind := KindInvoke
	if strings.HasPrefix(trimmed, "&") {
		kind = KindStart
		trimmed = strings.TrimSpace(trimmed[1:])
	}

	var parts []string
	if strings.Contains(trimmed, "\t") {
		for _, p := range strings.Split(trimmed, "\t") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	} else {
		parts = strings.Fields(trimmed)
	}

	switch len(parts) {
	case 0:
		return Command{}, fmt.Errorf("%w: missing operation", ErrMalformed)
	case 1:
		return Command{Kind: kind, Operation: parts[0]}, nil
	case 2:
		return Command{Kind: kind, Operation: parts[0], Unit: parts[1]}, nil
	}
	return Command{}, fmt.Errorf("%w: expected <operation> <unit>, got %d fields", ErrMalformed, len(parts))
}

// ABOUTME: Free-text command parsing for the operator chat mode
// ABOUTME: A small fixed grammar covering task and case operations

package operator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/unibuc-cs/ghiseu-gateway/internal/store"
)

// ErrUnknownCommand is returned for text that matches no command form.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind identifies a parsed operator command.
type CommandKind string

const (
	CmdListTasks   CommandKind = "list_tasks"
	CmdClaimTask   CommandKind = "claim_task"
	CmdDoneTask    CommandKind = "done_task"
	CmdListCases   CommandKind = "list_cases"
	CmdAdvanceCase CommandKind = "advance_case"
	CmdHelp        CommandKind = "help"
)

// Command is one parsed operator instruction.
type Command struct {
	Kind   CommandKind
	TaskID int64
	CaseID string
	Status string
	Notes  string
}

var (
	reClaimTask   = regexp.MustCompile(`^claim\s+task\s+(\d+)$`)
	reDoneTask    = regexp.MustCompile(`^done\s+task\s+(\d+)(?:\s+notes:\s*(.+))?$`)
	reAdvanceCase = regexp.MustCompile(`^advance\s+case\s+(\S+)\s+to\s+(\S+)$`)
)

// ParseCommand interprets one line of operator chat. The grammar is
// deliberately small and exact; anything else is ErrUnknownCommand so
// typos never mutate state.
func ParseCommand(text string) (*Command, error) {
	line := strings.ToLower(strings.TrimSpace(text))
	// Preserve original casing for free-form tails (notes, case ids).
	orig := strings.TrimSpace(text)

	switch line {
	case "list tasks", "tasks":
		return &Command{Kind: CmdListTasks}, nil
	case "list cases", "cases":
		return &Command{Kind: CmdListCases}, nil
	case "help", "?":
		return &Command{Kind: CmdHelp}, nil
	}

	if m := reClaimTask.FindStringSubmatch(line); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad task id %q", ErrUnknownCommand, m[1])
		}
		return &Command{Kind: CmdClaimTask, TaskID: id}, nil
	}

	if m := reDoneTask.FindStringSubmatch(line); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad task id %q", ErrUnknownCommand, m[1])
		}
		cmd := &Command{Kind: CmdDoneTask, TaskID: id}
		if m[2] != "" {
			// Take notes from the original text to keep their casing.
			if idx := strings.Index(strings.ToLower(orig), "notes:"); idx >= 0 {
				cmd.Notes = strings.TrimSpace(orig[idx+len("notes:"):])
			}
		}
		return cmd, nil
	}

	if m := reAdvanceCase.FindStringSubmatch(line); m != nil {
		// Case ids and statuses are stored uppercase.
		return &Command{
			Kind:   CmdAdvanceCase,
			CaseID: strings.ToUpper(m[1]),
			Status: strings.ToUpper(m[2]),
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, orig)
}

const helpText = `Commands:
  list tasks
  claim task <id>
  done task <id> notes: <text>
  list cases
  advance case <id> to <status>`

// Execute parses and runs one operator chat line, returning a plain-text
// reply for the console.
func (s *Service) Execute(ctx context.Context, operatorID, text string) (string, error) {
	cmd, err := ParseCommand(text)
	if err != nil {
		return "", err
	}

	switch cmd.Kind {
	case CmdHelp:
		return helpText, nil

	case CmdListTasks:
		tasks, err := s.ListTasks(ctx, store.TaskFilter{})
		if err != nil {
			return "", err
		}
		return renderTasks(tasks), nil

	case CmdClaimTask:
		task, err := s.Claim(ctx, cmd.TaskID, operatorID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Task %d claimed (case %s).", task.ID, task.CaseID), nil

	case CmdDoneTask:
		task, err := s.Complete(ctx, cmd.TaskID, operatorID, cmd.Notes)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Task %d completed (case %s).", task.ID, task.CaseID), nil

	case CmdListCases:
		cases, err := s.ListCases(ctx, store.CaseFilter{})
		if err != nil {
			return "", err
		}
		return renderCases(cases), nil

	case CmdAdvanceCase:
		c, err := s.AdvanceCase(ctx, operatorID, cmd.CaseID, cmd.Status)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Case %s is now %s.", c.ID, c.Status), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, text)
}

func renderTasks(tasks []*store.Task) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d  %-12s %-8s case=%s", t.ID, t.Kind, t.Status, t.CaseID)
		if t.Assignee != "" {
			fmt.Fprintf(&b, " assignee=%s", t.Assignee)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCases(cases []*store.Case) string {
	if len(cases) == 0 {
		return "No cases."
	}
	var b strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&b, "%s  %-2s %-16s session=%s\n", c.ID, c.Program, c.Status, c.SessionID)
	}
	return strings.TrimRight(b.String(), "\n")
}

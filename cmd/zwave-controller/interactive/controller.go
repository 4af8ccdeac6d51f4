// Package interactive provides the interactive command-line interface
// for zwave-controller.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/homenode/zwave-go/pkg/action"
	"github.com/homenode/zwave-go/pkg/handshake"
	"github.com/homenode/zwave-go/pkg/persistence"
	"github.com/homenode/zwave-go/pkg/serialapi"
	"github.com/homenode/zwave-go/pkg/session"
)

// ActionTimeout bounds one command round trip including retransmissions.
const ActionTimeout = 10 * time.Second

// Session is the part of *session.Session the shell drives.
type Session interface {
	DoAction(ctx context.Context, a action.Action) (serialapi.CommandFrame, error)
	Status() session.Status
	Nodes() []persistence.NodeRecord
}

// Controller handles interactive mode for zwave-controller.
type Controller struct {
	sess      Session
	inclusion action.InclusionStart
	out       io.Writer
	rl        *readline.Instance
}

// New creates an interactive controller on the terminal. A bare "include"
// sends inclusion. Call SetSession before Run.
func New(inclusion action.InclusionStart) (*Controller, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "zwave> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem(action.VerbInclude,
				readline.PcItem(action.WordHighPower),
				readline.PcItem(action.WordNetworkWide),
			),
			readline.PcItem(action.VerbIncludeStop),
			readline.PcItem(action.VerbExclude),
			readline.PcItem(action.VerbExcludeStop),
			readline.PcItem("status"),
			readline.PcItem("nodes"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := NewWithWriter(inclusion, rl.Stdout())
	c.rl = rl
	return c, nil
}

// NewWithWriter creates a controller without a terminal. Output goes to w.
func NewWithWriter(inclusion action.InclusionStart, w io.Writer) *Controller {
	return &Controller{inclusion: inclusion, out: w}
}

// SetSession sets the session commands are sent to.
func (c *Controller) SetSession(sess Session) {
	c.sess = sess
}

// Stdout returns a writer that coordinates with the readline prompt.
func (c *Controller) Stdout() io.Writer {
	return c.out
}

// Close releases the terminal.
func (c *Controller) Close() error {
	if c.rl == nil {
		return nil
	}
	return c.rl.Close()
}

// Run starts the interactive command loop.
func (c *Controller) Run(ctx context.Context, cancel context.CancelFunc) {
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns true when the shell should exit.
func (c *Controller) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status":
		c.cmdStatus()

	case "nodes", "ls":
		c.cmdNodes()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	case action.VerbInclude, action.VerbIncludeStop, action.VerbExclude, action.VerbExcludeStop:
		c.cmdAction(ctx, input, len(parts) == 1)

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Controller) cmdAction(ctx context.Context, input string, bare bool) {
	a, err := action.Parse(input)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if _, ok := a.(action.InclusionStart); ok && bare {
		a = c.inclusion
	}

	actx, cancel := context.WithTimeout(ctx, ActionTimeout)
	defer cancel()

	cf, err := c.sess.DoAction(actx, a)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Sent %s: %s\n", a, cf)
}

func (c *Controller) cmdStatus() {
	st := c.sess.Status()
	fmt.Fprintf(c.out, "Session:  %s (%s)\n", st.SessionID, st.State)
	fmt.Fprintf(c.out, "Nodes:    %d\n", st.NodeCount)

	for _, op := range []handshake.Operation{handshake.OperationInclusion, handshake.OperationExclusion} {
		opSt, ok := st.Operations[op]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%-10s %s", op.String()+":", opSt.Phase)
		if opSt.LastNodeID.Valid() {
			line += fmt.Sprintf(" (node %d)", opSt.LastNodeID)
		}
		if opSt.Remaining > 0 {
			line += fmt.Sprintf(", timeout in %s", opSt.Remaining.Round(time.Second))
		}
		if opSt.Abandoned {
			line += ", abandoned after timeout"
		}
		fmt.Fprintln(c.out, line)
	}
}

func (c *Controller) cmdNodes() {
	nodes := c.sess.Nodes()
	if len(nodes) == 0 {
		fmt.Fprintln(c.out, "No nodes included")
		return
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	fmt.Fprintf(c.out, "Included nodes (%d):\n", len(nodes))
	for _, n := range nodes {
		kind := string(n.Kind)
		if kind == "" {
			kind = "unknown"
		}
		added := "-"
		if !n.AddedAt.IsZero() {
			added = n.AddedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(c.out, "  %3d  %-10s  %s\n", n.NodeID, kind, added)
	}
}

func (c *Controller) printHelp() {
	fmt.Fprintln(c.out, `
Z-Wave Controller Commands:
  Membership:
    include [hp] [nw]   - Start inclusion (hp: high power, nw: network wide)
    include-stop        - Stop inclusion
    exclude             - Start exclusion
    exclude-stop        - Stop exclusion

  General:
    status              - Show handshake status
    nodes               - List included nodes
    help                - Show this help
    quit                - Exit controller`)
}

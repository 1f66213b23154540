// Package admincli implements the interactive operator console: a
// line-oriented stdin command loop wired directly to the relay's Admin
// hooks, with colorized output.
package admincli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"go.uber.org/zap"

	"github.com/odyssey-relay/server/pkg/relay"
	"github.com/odyssey-relay/server/pkg/wire"
)

// Console reads newline-delimited commands from an input stream and
// dispatches them to an Admin.
type Console struct {
	admin *relay.Admin
	log   *zap.Logger
	in    io.Reader
	out   io.Writer
}

func NewConsole(admin *relay.Admin, log *zap.Logger) *Console {
	return &Console{admin: admin, log: log, in: os.Stdin, out: os.Stdout}
}

// Run blocks reading commands until ctx is cancelled or the input stream
// is exhausted.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.dispatch(strings.TrimSpace(line))
		}
	}
}

func (c *Console) dispatch(line string) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "list":
		c.cmdList()
	case "kick":
		c.cmdKick(args)
	case "ban":
		c.cmdBan(args)
	case "ban_ip":
		c.cmdBanIP(args)
	case "send_chat":
		c.admin.SendChat(strings.Join(args, " "))
		color.Green.Fprintln(c.out, "chat message sent")
	case "crash":
		c.cmdCrash(args)
	case "reset_shines":
		c.admin.ResetShines()
		color.Green.Fprintln(c.out, "shine bag reset")
	case "change_stage":
		c.cmdChangeStage(args)
	case "help":
		c.cmdHelp()
	default:
		color.Yellow.Fprintf(c.out, "unknown command %q, try 'help'\n", cmd)
	}
}

func (c *Console) cmdList() {
	players := c.admin.List()
	color.Cyan.Fprintf(c.out, "%d player(s) online (max %d)\n", len(players), c.admin.MaxPlayers())
	for _, p := range players {
		fmt.Fprintf(c.out, "  %s  %s\n", p.ID, p.Name)
	}
}

func (c *Console) cmdKick(args []string) {
	if len(args) != 1 {
		color.Yellow.Fprintln(c.out, "usage: kick <player-id>")
		return
	}
	id, err := wire.ParseID(args[0])
	if err != nil {
		color.Red.Fprintf(c.out, "invalid player id: %v\n", err)
		return
	}
	if err := c.admin.Kick(id); err != nil {
		color.Red.Fprintln(c.out, err.Error())
		return
	}
	color.Green.Fprintf(c.out, "kicked %s\n", id)
}

func (c *Console) cmdBan(args []string) {
	if len(args) != 1 {
		color.Yellow.Fprintln(c.out, "usage: ban <player-id>")
		return
	}
	id, err := wire.ParseID(args[0])
	if err != nil {
		color.Red.Fprintf(c.out, "invalid player id: %v\n", err)
		return
	}
	c.admin.Ban(id)
	color.Green.Fprintf(c.out, "banned %s\n", id)
}

func (c *Console) cmdBanIP(args []string) {
	if len(args) != 1 {
		color.Yellow.Fprintln(c.out, "usage: ban_ip <address>")
		return
	}
	c.admin.BanIP(args[0])
	color.Green.Fprintf(c.out, "banned ip %s\n", args[0])
}

func (c *Console) cmdCrash(args []string) {
	if len(args) != 1 {
		color.Yellow.Fprintln(c.out, "usage: crash <player-id>")
		return
	}
	id, err := wire.ParseID(args[0])
	if err != nil {
		color.Red.Fprintf(c.out, "invalid player id: %v\n", err)
		return
	}
	if err := c.admin.Crash(id); err != nil {
		color.Red.Fprintln(c.out, err.Error())
		return
	}
	color.Red.Fprintf(c.out, "crashed %s\n", id)
}

func (c *Console) cmdChangeStage(args []string) {
	if len(args) < 2 || len(args) > 5 {
		color.Yellow.Fprintln(c.out, "usage: change_stage <player-id> <stage-name> [id-field] [scenario] [sub-scenario]")
		return
	}
	id, err := wire.ParseID(args[0])
	if err != nil {
		color.Red.Fprintf(c.out, "invalid player id: %v\n", err)
		return
	}
	var idField string
	var scenario, sub byte
	if len(args) >= 3 {
		idField = args[2]
	}
	if len(args) >= 4 {
		scenario = parseByteArg(args[3])
	}
	if len(args) == 5 {
		sub = parseByteArg(args[4])
	}
	if err := c.admin.ChangeStage(id, args[1], idField, scenario, sub); err != nil {
		color.Red.Fprintln(c.out, err.Error())
		return
	}
	color.Green.Fprintf(c.out, "sent change_stage %s to %s\n", args[1], id)
}

func parseByteArg(s string) byte {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0
	}
	return byte(n)
}

func (c *Console) cmdHelp() {
	fmt.Fprintln(c.out, `commands:
  list
  kick <player-id>
  ban <player-id>
  ban_ip <address>
  send_chat <text...>
  crash <player-id>
  reset_shines
  change_stage <player-id> <stage-name> [id-field] [scenario] [sub-scenario]
  help`)
}

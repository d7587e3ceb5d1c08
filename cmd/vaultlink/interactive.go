package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
	"github.com/vaultlink-protocol/vaultlink-go/pkg/session"
)

// client runs the interactive REPL over a session controller.
type client struct {
	ctrl *session.Controller
	rl   *readline.Instance
}

func newClient(ctrl *session.Controller) (*client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vault> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &client{ctrl: ctrl, rl: rl}

	ctrl.SetMessageHandler(c.handlePush)
	ctrl.SetCloseHandler(func(err error) {
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "\nConnection lost: %v\n", err)
		}
	})

	return c, nil
}

// handlePush surfaces unsolicited responses; direct replies are
// printed by the command that issued them.
func (c *client) handlePush(resp *protocol.Response) {
	if !resp.IsPush() {
		return
	}
	switch resp.Type {
	case protocol.TypeConnected:
		// Announced through the status callback already.
	case protocol.TypeTree:
		fmt.Fprintln(c.rl.Stdout(), "[push] vault tree updated")
	default:
		fmt.Fprintf(c.rl.Stdout(), "[push] %s\n", resp.Type)
	}
}

// Run prompts for the secret, connects, and enters the command loop.
func (c *client) Run() error {
	defer c.rl.Close()

	secret, err := c.rl.ReadPassword("Vault secret: ")
	if err != nil {
		return fmt.Errorf("reading secret: %w", err)
	}

	err = c.ctrl.Connect(context.Background(), string(secret), func(text string) {
		fmt.Fprintln(c.rl.Stdout(), text)
	})
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer c.ctrl.Disconnect()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "tree", "t":
			c.issue(protocol.CmdGetTree, nil)

		case "tags":
			c.issue(protocol.CmdLoadTags, nil)

		case "graph":
			c.issue(protocol.CmdLoadGraph, nil)

		case "get", "g":
			c.withPath(args, protocol.CmdGetFile)

		case "rendered":
			c.withPath(args, protocol.CmdGetRenderedFile)

		case "save":
			c.cmdSave(args)

		case "write", "w":
			if len(args) < 1 {
				fmt.Fprintln(c.rl.Stdout(), "Usage: write <text>")
				continue
			}
			c.issue(protocol.CmdWrite, map[string]any{"content": strings.Join(args, " ")})

		case "create":
			c.withPath(args, protocol.CmdCreateFile)

		case "mkdir":
			c.withPath(args, protocol.CmdCreateFolder)

		case "rename", "mv":
			c.cmdRename(args)

		case "rm", "delete":
			c.withPath(args, protocol.CmdDeleteFile)

		case "open", "o":
			c.withPath(args, protocol.CmdOpenFile)

		case "daily":
			c.issue(protocol.CmdOpenDailyNote, nil)

		case "refresh":
			if err := c.ctrl.Refresh(context.Background()); err != nil {
				fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
			}

		case "raw":
			c.cmdRaw(args)

		case "status":
			fmt.Fprintf(c.rl.Stdout(), "Session: %s\n", c.ctrl.State())

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *client) printHelp() {
	fmt.Fprint(c.rl.Stdout(), `Commands:
  tree, t               Fetch the vault file tree
  tags                  Fetch the tag index
  graph                 Fetch the link graph
  get, g <path>         Fetch a file's raw content
  rendered <path>       Fetch a file's rendered content
  save <path> <text>    Save text to a file
  write, w <text>       Append text to the open file
  create <path>         Create a file
  mkdir <path>          Create a folder
  rename, mv <old> <new> Rename a file
  rm, delete <path>     Delete a file
  open, o <path>        Open a file in the executor
  daily                 Open today's daily note
  refresh               Re-fetch the vault tree
  raw <CMD> [json]      Send a raw command with an optional JSON payload
  status                Show session state
  quit, exit, q         Exit
`)
}

func (c *client) withPath(args []string, cmd protocol.CommandName) {
	if len(args) != 1 {
		fmt.Fprintf(c.rl.Stdout(), "Usage: %s <path>\n", strings.ToLower(string(cmd)))
		return
	}
	c.issue(cmd, map[string]any{"path": args[0]})
}

func (c *client) cmdSave(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: save <path> <text>")
		return
	}
	c.issue(protocol.CmdSaveFile, map[string]any{
		"path":    args[0],
		"content": strings.Join(args[1:], " "),
	})
}

func (c *client) cmdRename(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: rename <old> <new>")
		return
	}
	c.issue(protocol.CmdRenameFile, map[string]any{
		"path":    args[0],
		"newPath": args[1],
	})
}

func (c *client) cmdRaw(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: raw <CMD> [json payload]")
		return
	}

	var payload map[string]any
	if len(args) > 1 {
		raw := strings.Join(args[1:], " ")
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Bad payload: %v\n", err)
			return
		}
	}
	c.issue(protocol.CommandName(strings.ToUpper(args[0])), payload)
}

// issue sends a command and prints its reply.
func (c *client) issue(cmd protocol.CommandName, payload map[string]any) {
	resp, err := c.ctrl.Send(context.Background(), cmd, payload)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	c.printResponse(c.rl.Stdout(), resp)
}

// printResponse shows file content directly and summarizes anything
// else as indented JSON.
func (c *client) printResponse(w io.Writer, resp *protocol.Response) {
	switch resp.Type {
	case protocol.TypeFile, protocol.TypeRenderedFile:
		if content, ok := resp.Data["content"].(string); ok {
			fmt.Fprintln(w, content)
			return
		}
	}

	fmt.Fprintf(w, "%s", resp.Type)
	if len(resp.Data) == 0 {
		fmt.Fprintln(w)
		return
	}

	keys := make([]string, 0, len(resp.Data))
	for k := range resp.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, " (%s)\n", strings.Join(keys, ", "))

	pretty, err := json.MarshalIndent(resp.Data, "", "  ")
	if err == nil {
		fmt.Fprintln(w, string(pretty))
	}
}

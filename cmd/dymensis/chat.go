package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Twynzen/dymensisCDA-sub002/action"
	"github.com/Twynzen/dymensisCDA-sub002/agent"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Create a universe or character from the terminal",
		Long: `Starts an interactive creation session.

Plain lines are sent as chat messages. Lines starting with a slash are commands:
  /start universe|character   start a creation flow
  /do <action> [arg]          run a quick action (confirm, regenerate, ...)
  /image <path> <slot>        attach an image as cover, location or avatar
  /status                     show the current session state
  /quit                       leave`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().String("resume", "", "tracking id of a checkpoint to resume")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	store := session.New(session.WithLocale(cfg.Locale))
	if id, _ := cmd.Flags().GetString("resume"); id != "" {
		store, err = svc.Resume(ctx, id, session.WithLocale(cfg.Locale))
		if err != nil {
			return err
		}
	}

	c := &chat{
		svc:   svc,
		agent: agent.NewAgent("Dymensis", "Guides the user through creating universes and characters", svc, store),
		out:   cmd.OutOrStdout(),
	}
	c.runner = adk.NewRunner(ctx, adk.RunnerConfig{Agent: c.agent})
	return c.loop(ctx, cmd.InOrStdin())
}

type chat struct {
	svc    *agent.Service
	agent  *agent.Agent
	runner *adk.Runner
	out    io.Writer
	// number of messages already printed
	printed int
}

func (c *chat) loop(ctx context.Context, in io.Reader) error {
	c.printNew()
	if len(c.agent.Store().Messages()) == 0 {
		fmt.Fprintln(c.out, "Describe what you want to create, or type /start universe.")
	}
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(c.out, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			c.printNew()
			if quit {
				return nil
			}
			continue
		}
		if err := c.send(ctx, line); err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *chat) send(ctx context.Context, line string) error {
	iter := c.runner.Run(ctx, []adk.Message{schema.UserMessage(line)})
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		if event.Err != nil {
			return event.Err
		}
		msg, err := event.Output.MessageOutput.GetMessage()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "\nDymensis: %s\n\n", msg.Content)
	}
	c.printed = len(c.agent.Store().Messages())
	return nil
}

// printNew prints the assistant messages added since the last call.
func (c *chat) printNew() {
	msgs := c.agent.Store().Messages()
	if c.printed > len(msgs) {
		c.printed = 0
	}
	for _, m := range msgs[c.printed:] {
		if m.Role == schema.Assistant {
			fmt.Fprintf(c.out, "\nDymensis: %s\n\n", m.Content)
		}
	}
	c.printed = len(msgs)
}

func (c *chat) command(ctx context.Context, line string) (bool, error) {
	store := c.agent.Store()
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "status":
		c.printStatus(store.Snapshot())
		return false, nil
	case "start":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /start universe|character")
		}
		return false, c.svc.StartCreation(ctx, store, types.TargetType(fields[1]))
	case "do":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /do <action> [arg]")
		}
		t, err := action.ParseType(fields[1])
		if err != nil {
			return false, err
		}
		return false, c.svc.Dispatch(ctx, store, t, strings.Join(fields[2:], " "))
	case "image":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: /image <path> <slot>")
		}
		slot, ok := agent.ParseImageSlot(fields[2])
		if !ok {
			return false, fmt.Errorf("unknown image slot %q", fields[2])
		}
		data, err := os.ReadFile(fields[1])
		if err != nil {
			return false, err
		}
		if err := c.svc.UploadImage(ctx, store, data, ""); err != nil {
			return false, err
		}
		return false, c.svc.ClassifyImage(ctx, store, slot)
	}
	return false, fmt.Errorf("unknown command /%s", fields[0])
}

func (c *chat) printStatus(snap session.Snapshot) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Key", "Value")
	rows := [][]string{
		{"tracking id", snap.TrackingID},
		{"mode", string(snap.Mode)},
		{"phase", fmt.Sprintf("%s (%d)", snap.Phase, snap.PhaseIndex)},
		{"progress", fmt.Sprintf("%d%%", snap.Progress)},
		{"filled", strings.Join(snap.FilledFields, ", ")},
		{"created id", snap.CreatedID},
	}
	if snap.SelectedUniverse != nil {
		rows = append(rows, []string{"universe", snap.SelectedUniverse.Name})
	}
	for _, e := range snap.Validation.Errors {
		rows = append(rows, []string{"error", e})
	}
	for _, w := range snap.Validation.Warnings {
		rows = append(rows, []string{"warning", w})
	}
	var labels []string
	for _, a := range snap.VisibleActions {
		if !a.Disabled {
			labels = append(labels, string(a.Type))
		}
	}
	rows = append(rows, []string{"actions", strings.Join(labels, ", ")})
	for _, r := range rows {
		_ = table.Append(r[0], r[1])
	}
	_ = table.Render()
}

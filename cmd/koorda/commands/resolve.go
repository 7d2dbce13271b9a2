package commands

import (
	"context"
	"strings"

	"github.com/dyluth/koorda/internal/inspect"
	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/internal/printer"
	"github.com/dyluth/koorda/internal/resolver"
	"github.com/spf13/cobra"
)

const (
	againstDefinitions   = "definitions"
	againstNotifications = "notifications"
	againstTasks         = "tasks"
)

var resolveAgainst string

var resolveCmd = &cobra.Command{
	Use:   "resolve SPOKEN_NAME...",
	Short: "Show how a spoken name resolves against Koordinator names",
	Long: `Resolve a spoken name the way the skill does, against one of:
  definitions    workflow definitions (highest version wins)
  notifications  workflow names of pending notifications
  tasks          task names of pending notifications

Several arguments are joined with spaces and normalized like a spoken slot,
so quoting is optional and number words become digits:
  koorda resolve facture deux   # resolves "facture2"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAgainst, "against", againstDefinitions, "Names to resolve against: definitions, notifications or tasks")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	var candidates []resolver.Candidate
	switch resolveAgainst {
	case againstDefinitions:
		defs, err := client.WorkflowDefinitions(ctx)
		if err != nil {
			return backendError(cfg, err)
		}
		for _, d := range defs {
			candidates = append(candidates, resolver.Candidate{ID: d.ID, Name: d.Name, Version: d.VersionNumber})
		}
	case againstNotifications, againstTasks:
		notifications, err := client.PendingNotifications(ctx, cfg.Koordinator.Namespace)
		if err != nil {
			return backendError(cfg, err)
		}
		for _, n := range notifications {
			name := n.WorkflowName()
			if resolveAgainst == againstTasks {
				name = n.TaskName()
			}
			candidates = append(candidates, resolver.Candidate{ID: n.ID, Name: name})
		}
	default:
		return printer.Error(
			"invalid --against value",
			"Unknown name list: "+resolveAgainst,
			[]string{"Valid values: definitions, notifications, tasks"},
		)
	}

	spoken := intent.NormalizeSlot(strings.Join(args, " "))
	r := resolver.Resolver{PlausibilitySlack: cfg.Resolver.PlausibilitySlack}
	inspect.FormatOutcome(printer.Stdout, spoken, r.Resolve(spoken, candidates))
	return nil
}

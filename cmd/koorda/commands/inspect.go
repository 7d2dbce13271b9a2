package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/koorda/internal/config"
	"github.com/dyluth/koorda/internal/inspect"
	"github.com/dyluth/koorda/internal/printer"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/spf13/cobra"
)

var (
	outputFormat string

	notificationsWorkflow string
	notificationsUser     string
	notificationsToday    bool
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List pending manual task notifications",
	Long: `List the manual tasks awaiting a decision in the configured namespace,
oldest first.

Examples:
  # Everything pending
  koorda notifications

  # Today's notifications for payroll workflows, as JSONL for jq
  koorda notifications --workflow 'payroll*' --today -o jsonl`,
	Args: cobra.NoArgs,
	RunE: runNotifications,
}

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "List workflow definitions and their versions",
	Args:  cobra.NoArgs,
	RunE:  runDefinitions,
}

var instancesCmd = &cobra.Command{
	Use:   "instances WORKFLOW",
	Short: "List the running and finished instances of a workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstances,
}

func init() {
	for _, cmd := range []*cobra.Command{notificationsCmd, definitionsCmd, instancesCmd} {
		cmd.Flags().StringVarP(&outputFormat, "output", "o", "default", "Output format: default or jsonl")
		rootCmd.AddCommand(cmd)
	}

	notificationsCmd.Flags().StringVar(&notificationsWorkflow, "workflow", "", "Filter by workflow name (glob pattern, case-insensitive)")
	notificationsCmd.Flags().StringVar(&notificationsUser, "user", "", "Filter by user name (exact match)")
	notificationsCmd.Flags().BoolVar(&notificationsToday, "today", false, "Only notifications created today")
}

func runNotifications(cmd *cobra.Command, args []string) error {
	format, cfg, client, err := setupInspect()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	filter := inspect.NotificationFilter{
		WorkflowGlob: notificationsWorkflow,
		User:         notificationsUser,
		TodayOnly:    notificationsToday,
		Now:          time.Now(),
		Location:     loc,
	}
	err = inspect.ListNotifications(context.Background(), client, cfg.Koordinator.Namespace, format, filter, printer.Stdout)
	return backendError(cfg, err)
}

func runDefinitions(cmd *cobra.Command, args []string) error {
	format, cfg, client, err := setupInspect()
	if err != nil {
		return err
	}
	return backendError(cfg, inspect.ListDefinitions(context.Background(), client, format, printer.Stdout))
}

func runInstances(cmd *cobra.Command, args []string) error {
	format, cfg, client, err := setupInspect()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	return backendError(cfg, inspect.ListInstances(context.Background(), client, args[0], format, loc, printer.Stdout))
}

func setupInspect() (inspect.OutputFormat, *config.Config, *koordinator.Client, error) {
	format, err := inspect.ParseOutputFormat(outputFormat)
	if err != nil {
		return "", nil, nil, printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, jsonl"})
	}

	cfg, err := loadConfig()
	if err != nil {
		return "", nil, nil, err
	}

	client, err := newClient(cfg)
	if err != nil {
		return "", nil, nil, err
	}
	return format, cfg, client, nil
}

func newClient(cfg *config.Config) (*koordinator.Client, error) {
	client, err := koordinator.NewClient(cfg.ClientOptions(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create koordinator client: %w", err)
	}
	return client, nil
}

// backendError reports a failed Koordinator call with the endpoints in use.
func backendError(cfg *config.Config, err error) error {
	if err == nil {
		return nil
	}
	return printer.ErrorWithContext(
		"Koordinator request failed",
		err.Error(),
		map[string]string{
			"Polling":    cfg.Koordinator.Polling,
			"Workflows":  cfg.Koordinator.Workflows,
			"Monitoring": cfg.Koordinator.Monitoring,
		},
		[]string{"Check that the Koordinator services are up and koordinator.* URLs are correct"},
	)
}

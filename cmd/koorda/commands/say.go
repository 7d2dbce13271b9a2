package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/internal/printer"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// defaultConversation lets successive say invocations continue one dialogue.
const defaultConversation = "koorda-cli"

var (
	sayConversation string
	sayUser         string
	sayLocale       string
	sayEnd          bool
)

var sayCmd = &cobra.Command{
	Use:   "say INTENT [SLOT=VALUE...]",
	Short: "Run one voice turn through the skill and print the answer",
	Long: `Handle a single utterance in-process, exactly as the HTTP service would,
and print what the voice assistant would say.

Conversation snapshots live in the configured store, so successive calls with
the same --conversation continue the same dialogue.

Examples:
  koorda say CheckNotification
  koorda say ManualTaskValidation taskName="sign off"
  koorda say WorkflowStatus workflowName="facture deux"
  koorda say AMAZON.StopIntent --end`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func init() {
	sayCmd.Flags().StringVar(&sayConversation, "conversation", defaultConversation, "Conversation id")
	sayCmd.Flags().StringVar(&sayUser, "user", "", "User id sent with relayed intents")
	sayCmd.Flags().StringVar(&sayLocale, "locale", "fr-FR", "Utterance locale")
	sayCmd.Flags().BoolVar(&sayEnd, "end", false, "End the conversation after this turn")
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	slots, err := parseSlots(args[1:])
	if err != nil {
		return printer.Error("invalid slot", err.Error(), []string{"Pass slots as name=value, e.g. workflowName=Payroll"})
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := cfg.LogConfig()
	// keep info logs off the spoken output
	if logCfg.Level != "debug" && logCfg.Level != "trace" {
		logCfg.Level = "warn"
	}
	logger, err := telemetry.NewLogger(logCfg)
	if err != nil {
		return printer.Error("invalid logging output", err.Error(), []string{"Check logging.output in koorda.yml"})
	}

	a, err := newApp(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	polling := make(chan struct{})
	go func() {
		defer close(polling)
		_ = a.poller.Run(ctx)
	}()
	defer func() {
		cancel()
		<-polling
	}()

	resp := a.skill.HandleUtterance(ctx, intent.Event{
		ConversationID: sayConversation,
		Name:           args[0],
		Slots:          slots,
		Locale:         sayLocale,
		UserID:         sayUser,
		RequestID:      uuid.NewString(),
	})
	printer.Spoken(resp.Text, resp.ExpectsFollowUp)

	if sayEnd && resp.ExpectsFollowUp {
		if err := a.skill.HandleSessionEnd(ctx, sayConversation); err != nil {
			return fmt.Errorf("failed to end conversation: %w", err)
		}
	}
	return nil
}

// parseSlots turns name=value arguments into a slot map.
func parseSlots(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, nil
	}
	slots := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		slots[strings.TrimSpace(name)] = value
	}
	return slots, nil
}

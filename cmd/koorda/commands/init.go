package commands

import (
	"fmt"

	"github.com/dyluth/koorda/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter koorda.yml",
	Long: `Write a commented koorda.yml with every setting at its default.

Use --force to overwrite an existing koorda.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing koorda.yml")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write koorda.yml into")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := scaffold.Initialize(initDir, forceInit)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	scaffold.PrintSuccess(path)
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jjenkins/okbills/internal/render"
	"github.com/jjenkins/okbills/internal/service"
	"github.com/spf13/cobra"
)

var classifyActions string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Infer a bill's stage from a JSON action list",
	Long: `Classify runs stage inference over actions in OpenStates format without
touching the database. The input may be a bill object with an "actions"
field or a bare array of actions.

Examples:
  okbills classify --actions hb1001.json
  curl -s -H "X-API-KEY: $OPENSTATES_API_KEY" "$URL" | okbills classify --actions -`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&classifyActions, "actions", "a", "", "Path to a JSON file, or - for stdin")
	classifyCmd.MarkFlagRequired("actions")
}

func runClassify(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if classifyActions == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(classifyActions)
	}
	if err != nil {
		return fmt.Errorf("failed to read actions: %w", err)
	}

	actions, err := service.ParseActions(data)
	if err != nil {
		return err
	}

	render.Classification(cmd.OutOrStdout(), actions, service.ClassifyStage(actions))
	return nil
}

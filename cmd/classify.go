package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Classify URLs and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, url := range args {
				if cmd.Context().Err() != nil {
					break
				}
				res := appInstance.Classify(cmd.Context(), url)
				if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
					url, res.Code, res.Status, res.Code.Label(), res.Source); err != nil {
					return fmt.Errorf("write result: %w", err)
				}
			}
			return nil
		},
	}
}

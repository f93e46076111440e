package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kokou-stm/kalanso/internal/question"
)

var checkCmd = &cobra.Command{
	Use:   "check <assessment>...",
	Short: "Validate assessment definition files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			def, err := question.Load(path)
			if err == nil {
				var points float64
				for _, q := range def.Questions {
					points += q.Common().Points
				}
				fmt.Fprintf(out, "✓ %s: %s, %d questions, %g points\n", path, def.ID, len(def.Questions), points)
				continue
			}
			failed++
			var verrs question.ValidationErrors
			if !errors.As(err, &verrs) {
				fmt.Fprintf(out, "✗ %s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "✗ %s: %d problem(s)\n", path, len(verrs))
			for _, ve := range verrs {
				fmt.Fprintf(out, "    %s\n", ve.Error())
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
		}
		return nil
	},
}

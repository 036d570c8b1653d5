package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-cli/internal/framework"
)

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List the registered regulatory frameworks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := newRegistry(*cfg)
		if err != nil {
			return err
		}
		formatFrameworks(os.Stdout, reg.List())
		return nil
	},
}

// formatFrameworks writes a table of frameworks with their term counts.
func formatFrameworks(out io.Writer, fws []framework.Framework) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDATA\tREGULATORY\tHIGH_RISK\tPRIORITY\tPHRASES\tCONTEXT\tDESCRIPTION")

	for _, fw := range fws {
		c := fw.Terms().Counts()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			fw.ID(), fw.Name(),
			c["data_terms"], c["regulatory_keywords"], c["high_risk_patterns"],
			c["priority_keywords"], c["phrases"], c["context_patterns"],
			fw.Description(),
		)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(frameworksCmd)
}

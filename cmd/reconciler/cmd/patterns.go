package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"golang-transfer-reconciler/cmd/reconciler/config"
	"golang-transfer-reconciler/internal/matcher"
)

func (c *cli) patternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "List the effective transfer-intent patterns",
		Long: `List the transfer-intent patterns in evaluation order, after the display
name has been applied. Named patterns are skipped when no display name is set.`,
		Args: cobra.NoArgs,
		RunE: c.runPatterns,
	}
}

func (c *cli) runPatterns(cmd *cobra.Command, _ []string) error {
	matchingConfig, err := config.CreateMatchingConfig(c.v)
	if err != nil {
		return err
	}

	patterns, err := matcher.CompilePatterns(matchingConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tDIRECTION\tBANKS\tREGEX")
	_, _ = fmt.Fprintln(w, "──\t────\t─────────\t─────\t─────")
	for _, p := range patterns.Patterns() {
		banks := "all"
		if len(p.Banks) > 0 {
			names := make([]string, 0, len(p.Banks))
			for _, b := range p.Banks {
				names = append(names, b.String())
			}
			banks = strings.Join(names, ",")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Kind, p.Direction, banks, p.Regex)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if skipped := patterns.Skipped(); len(skipped) > 0 {
		_, _ = fmt.Fprintf(out, "\nSkipped without --display-name: %s\n", strings.Join(skipped, ", "))
	}
	return nil
}

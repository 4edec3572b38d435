// File: cmd/rules.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/tracelens/internal/config"
	"github.com/xkilldash9x/tracelens/internal/rules"
)

// newRulesCmd groups the rule set inspection commands.
func newRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect frame classification rules",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective rule set as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runRulesShow(cfg, cmd.OutOrStdout())
		},
	}
	showCmd.Flags().StringP("rules", "r", "", "YAML rules file replacing the configured rules")

	checkCmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a YAML rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesCheck(args[0], cmd.OutOrStdout())
		},
	}

	rulesCmd.AddCommand(showCmd, checkCmd)
	return rulesCmd
}

func runRulesShow(cfg config.Interface, out io.Writer) error {
	rs, err := buildRuleSet(cfg.Rules())
	if err != nil {
		return err
	}
	data, err := rules.Marshal(rs)
	if err != nil {
		return fmt.Errorf("failed to render rules: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runRulesCheck(path string, out io.Writer) error {
	rs, err := rules.LoadFile(path)
	if err != nil {
		return fmt.Errorf("invalid rules file: %w", err)
	}
	_, err = fmt.Fprintf(out, "%s: ok (%d filtered namespaces, %d highlighted namespaces, %d filtered classes, %d highlighted classes)\n",
		path,
		len(rs.FilteredNamespaces), len(rs.HighlightedNamespaces),
		len(rs.FilteredClassNames), len(rs.HighlightedClassNames),
	)
	return err
}

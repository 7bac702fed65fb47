package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/estate-archive/internal/registry"
	"github.com/joseph-ayodele/estate-archive/internal/rules"
)

func newRulesCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rule sets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [FILE]",
		Short: "Validate a rule set; without FILE the embedded default is checked",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			rs, err := rules.Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s sha256:%s field_rules=%d field_sets=%d\n",
				rs.Source, rs.Digest, len(rs.Extract), len(rs.Match.FieldSets))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the embedded default rule set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(rules.DefaultYAML())
			return err
		},
	})
	return cmd
}

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and import the property registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check FILE",
		Short: "Load a .csv/.xlsx registry and print its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadFile(args[0], a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s records=%d columns=%v\n", reg.Source(), reg.Len(), reg.Columns())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import FILE",
		Short: "Replace the property_registry table with the records in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadFile(args[0], a.logger)
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close(a)
			if err := st.registry.ReplaceRegistry(cmd.Context(), reg.Records()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", reg.Len())
			return nil
		},
	})
	return cmd
}

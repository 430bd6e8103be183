package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/harun/chatrelay/pkg/persona"
	"github.com/harun/chatrelay/pkg/provider"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var catalogJSON bool

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the persona catalog",
	Long:  `List the persona tags the server resolves, including entries from the configured catalog file.`,
	RunE:  runPersonas,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known backend models",
	RunE:  runModels,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chatrelay version %s\n", version)
	},
}

func init() {
	personasCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
	modelsCmd.Flags().BoolVar(&catalogJSON, "json", false, "print JSON")
	rootCmd.AddCommand(personasCmd, modelsCmd, versionCmd)
}

func runPersonas(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	resolver, err := persona.NewResolver(persona.Config{
		Policy:      persona.Policy(cfg.Personas.Policy),
		CatalogPath: cfg.Personas.Catalog,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		return err
	}
	catalog := resolver.Catalog()

	if catalogJSON {
		return writeIndented(cmd, catalog.Instructions())
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tPROFILE\tINSTRUCTION\tDEFAULT")
	for _, inst := range catalog.Instructions() {
		profile := inst.TokenProfile
		if profile == "" {
			profile = "-"
		}
		hasText := "no"
		if inst.HasText() {
			hasText = "yes"
		}
		isDefault := ""
		if inst.Tag == catalog.Default() {
			isDefault = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", inst.Tag, profile, hasText, isDefault)
	}
	return w.Flush()
}

func runModels(cmd *cobra.Command, args []string) error {
	if catalogJSON {
		return writeIndented(cmd, provider.Models)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFAMILY\tMAX TOKENS")
	for _, m := range provider.Models {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", m.ID, m.Name, m.Family, m.MaxTokens)
	}
	return w.Flush()
}

func writeIndented(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

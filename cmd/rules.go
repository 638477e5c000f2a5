package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/climate-cli/internal/engine"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage saved rule sets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved rule sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sets, err := st.ListRuleSets(ctx)
		if err != nil {
			return err
		}
		if len(sets) == 0 {
			cmd.Println("no saved rule sets")
			return nil
		}
		for _, rs := range sets {
			cmd.Printf("%-36s  %-24s  %s\n", rs.ID, rs.Name, rs.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a saved rule set as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rs, err := st.GetRuleSetByName(ctx, args[0])
		if err != nil {
			return err
		}
		if rs == nil {
			return eris.Errorf("rule set %q not found", args[0])
		}

		// Round-trip through the engine so the printed document is normalized
		// (dense priorities, filled defaults) rather than whatever was stored.
		eng, err := engine.ImportJSON(string(rs.Document))
		if err != nil {
			return err
		}
		out, err := eng.ExportJSON(rs.Name)
		if err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	},
}

var rulesImportName string

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a rule file and save it to the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read rules file %s", args[0])
		}
		doc, err := parseRuleDocument(args[0], data)
		if err != nil {
			return err
		}
		eng, err := engine.FromDocument(doc)
		if err != nil {
			return err
		}

		name := rulesImportName
		if name == "" {
			name = doc.Name
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		normalized, err := eng.ExportJSON(name)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rs, err := st.SaveRuleSet(ctx, name, []byte(normalized))
		if err != nil {
			return err
		}
		zap.L().Info("rule set saved", zap.String("id", rs.ID), zap.String("name", rs.Name))
		cmd.Printf("saved rule set %q (%d categories)\n", rs.Name, eng.Len())
		return nil
	},
}

var rulesExportOut string

var rulesExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a saved rule set to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rs, err := st.GetRuleSetByName(ctx, args[0])
		if err != nil {
			return err
		}
		if rs == nil {
			return eris.Errorf("rule set %q not found", args[0])
		}

		eng, err := engine.ImportJSON(string(rs.Document))
		if err != nil {
			return err
		}
		out, err := eng.ExportJSON(rs.Name)
		if err != nil {
			return err
		}

		if rulesExportOut == "" {
			cmd.Println(out)
			return nil
		}
		if err := os.WriteFile(rulesExportOut, []byte(out), 0o644); err != nil {
			return eris.Wrapf(err, "write %s", rulesExportOut)
		}
		cmd.Printf("wrote %s\n", rulesExportOut)
		return nil
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a rule file parses and loads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read rules file %s", args[0])
		}
		doc, err := parseRuleDocument(args[0], data)
		if err != nil {
			return err
		}
		eng, err := engine.FromDocument(doc)
		if err != nil {
			return err
		}
		cmd.Printf("%s: ok (%d categories)\n", args[0], eng.Len())
		return nil
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rs, err := st.GetRuleSetByName(ctx, args[0])
		if err != nil {
			return err
		}
		if rs == nil {
			return eris.Errorf("rule set %q not found", args[0])
		}
		if err := st.DeleteRuleSet(ctx, rs.ID); err != nil {
			return err
		}
		cmd.Printf("deleted rule set %q\n", args[0])
		return nil
	},
}

var rulesPresetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Print the built-in example rule set",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := engine.New(engine.ExamplePreset())
		out, err := eng.ExportJSON("Temperature bands")
		if err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	},
}

// parseRuleDocument decodes a rule document, picking the codec from the file
// extension. YAML is accepted for hand-authored presets; everything else is
// treated as JSON.
func parseRuleDocument(path string, data []byte) (*engine.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return engine.ParseDocumentYAML(data)
	default:
		return engine.ParseDocument(data)
	}
}

func init() {
	rulesImportCmd.Flags().StringVarP(&rulesImportName, "name", "n", "", "name to save the rule set under (defaults to document or file name)")
	rulesExportCmd.Flags().StringVarP(&rulesExportOut, "out", "o", "", "output file (defaults to stdout)")

	rulesCmd.AddCommand(rulesListCmd, rulesShowCmd, rulesImportCmd, rulesExportCmd, rulesValidateCmd, rulesDeleteCmd, rulesPresetCmd)
	rootCmd.AddCommand(rulesCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantumflow/graphrag-skills/internal/template"
)

// newTemplateCmd wires the template Registry and Migrator into register,
// list, and migrate subcommands (spec §4.7, §4.10).
func newTemplateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage the dynamic export template registry",
	}

	var templatePath string
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Validate and register a template.json file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(templatePath)
			if err != nil {
				return fmt.Errorf("template register: read %s: %w", templatePath, err)
			}
			t, err := template.DecodeTemplateJSON(raw)
			if err != nil {
				return fmt.Errorf("template register: parse %s: %w", templatePath, err)
			}

			registry, err := a.newTemplateRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			if err := registry.RegisterTemplate(t); err != nil {
				return fmt.Errorf("template register: %w", err)
			}
			a.logger.Info("template registered", "identifier", t.Identifier())
			return nil
		},
	}
	registerCmd.Flags().StringVar(&templatePath, "file", "", "path to a template.json file (required)")
	_ = registerCmd.MarkFlagRequired("file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered template",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.newTemplateRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			infos, err := registry.ListTemplates()
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Printf("%s@%s\n", info.ID, info.Version)
			}
			return nil
		},
	}

	var oldID, oldVersion, newID, newVersion string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Diff two registered template versions and print a migration guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.newTemplateRegistry()
			if err != nil {
				return err
			}
			defer registry.Close()

			oldT, ok, err := registry.GetTemplate(oldID, oldVersion)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("template migrate: %s@%s not found", oldID, oldVersion)
			}
			newT, ok, err := registry.GetTemplate(newID, newVersion)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("template migrate: %s@%s not found", newID, newVersion)
			}

			migrator := template.NewMigrator()
			report := migrator.Diff(oldT, newT)
			fmt.Println(migrator.Guide(oldT, newT, report))
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&oldID, "old-id", "", "old template id (required)")
	migrateCmd.Flags().StringVar(&oldVersion, "old-version", "", "old template version (required)")
	migrateCmd.Flags().StringVar(&newID, "new-id", "", "new template id (required)")
	migrateCmd.Flags().StringVar(&newVersion, "new-version", "", "new template version (required)")
	_ = migrateCmd.MarkFlagRequired("old-id")
	_ = migrateCmd.MarkFlagRequired("old-version")
	_ = migrateCmd.MarkFlagRequired("new-id")
	_ = migrateCmd.MarkFlagRequired("new-version")

	cmd.AddCommand(registerCmd, listCmd, migrateCmd)
	return cmd
}

// newTemplateRegistry opens the configured filesystem-backed template
// registry, using its derived SQLite index when a path is configured.
func (a *app) newTemplateRegistry() (*template.Registry, error) {
	if a.cfg.Template.IndexPath != "" {
		return template.NewRegistryWithIndex(a.cfg.Template.Root, a.cfg.Template.IndexPath)
	}
	return template.NewRegistry(a.cfg.Template.Root)
}

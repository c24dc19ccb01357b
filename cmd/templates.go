package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/templating"
	"github.com/spf13/cobra"
)

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	var pool string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage alt text and filename templates",
		Long: `Manage the two template pools. Available placeholders:

` + placeholderHelp(),
	}
	cmd.PersistentFlags().StringVar(&pool, "pool", "alt", "Template pool: alt or filename")

	field := func() (models.Field, error) { return models.ParseField(pool) }

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates in a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := field()
			if err != nil {
				return err
			}
			ws, err := opts.openTemplates(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			for _, t := range ws.session.Templates.Pool(f).List() {
				fmt.Fprintf(out, "%-12s %-24s %s\n", t.ID, t.Name, t.Template)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "add <name> <template>",
		Short:   "Add a template",
		Example: `  alttext templates add "Basic" "{title} - {vendor} product"` + "\n" + `  alttext templates add --pool filename "Vendor" "{vendor}-{title}-{index}"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := field()
			if err != nil {
				return err
			}
			ws, err := opts.openTemplates(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			t, err := ws.session.Templates.Pool(f).Create(args[0], args[1])
			if err != nil {
				return err
			}
			if err := ws.saveTemplates(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", t.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <id> <name> <template>",
		Short: "Replace a template's name and pattern",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := field()
			if err != nil {
				return err
			}
			ws, err := opts.openTemplates(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			if _, err := ws.session.Templates.Pool(f).Update(args[0], args[1], args[2]); err != nil {
				return err
			}
			if err := ws.saveTemplates(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := field()
			if err != nil {
				return err
			}
			ws, err := opts.openTemplates(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.session.Templates.Pool(f).Delete(args[0]); err != nil {
				return err
			}
			if err := ws.saveTemplates(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func placeholderHelp() string {
	var s string
	for _, ph := range templating.All() {
		s += fmt.Sprintf("  %-12s %s\n", ph.Token(), ph.Help())
	}
	return s
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/journey/internal/template"
)

var (
	templateSubject  string
	templateBodyFile string
	templateSubsJSON string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Email template commands",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all templates",
	RunE:  runTemplateList,
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a template from an HTML file",
	RunE:  runTemplateCreate,
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templatePreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Render a template with test substitutions",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatePreview,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

func init() {
	templateCreateCmd.Flags().StringVar(&templateSubject, "subject", "", "Subject (required)")
	templateCreateCmd.Flags().StringVar(&templateBodyFile, "body", "", "HTML body file (required)")
	templateCreateCmd.MarkFlagRequired("subject")
	templateCreateCmd.MarkFlagRequired("body")

	templatePreviewCmd.Flags().StringVar(&templateSubsJSON, "data", "{}", `JSON substitutions, e.g. {"[name]":"Ann"}`)

	templateCmd.AddCommand(
		templateListCmd,
		templateCreateCmd,
		templateShowCmd,
		templatePreviewCmd,
		templateDeleteCmd,
	)
	rootCmd.AddCommand(templateCmd)
}

func runTemplateList(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	templates, err := svc.Templates.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(templates) == 0 {
		fmt.Println("No templates found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBJECT\tPLACEHOLDERS\tUPDATED")
	for _, tmpl := range templates {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			tmpl.ID,
			truncate(tmpl.Subject, 40),
			len(tmpl.SubjectPlaceholders)+len(tmpl.BodyPlaceholders),
			tmpl.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d templates\n", len(templates))
	return nil
}

func runTemplateCreate(cmd *cobra.Command, args []string) error {
	body, err := os.ReadFile(templateBodyFile)
	if err != nil {
		return fmt.Errorf("failed to read body file: %w", err)
	}

	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl := &template.Template{Subject: templateSubject, Body: string(body)}
	if err := svc.Templates.Create(cmd.Context(), tmpl); err != nil {
		return err
	}

	fmt.Printf("Template created successfully\n")
	fmt.Printf("  ID:           %s\n", tmpl.ID)
	fmt.Printf("  Placeholders: %v %v\n", tmpl.SubjectPlaceholders, tmpl.BodyPlaceholders)
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := svc.Templates.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:           %s\n", tmpl.ID)
	fmt.Printf("Subject:      %s\n", tmpl.Subject)
	fmt.Printf("Subject vars: %v\n", tmpl.SubjectPlaceholders)
	fmt.Printf("Body vars:    %v\n", tmpl.BodyPlaceholders)
	fmt.Printf("Created:      %s\n", tmpl.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:      %s\n", tmpl.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("\n--- Body ---\n%s\n", tmpl.Body)
	return nil
}

func runTemplatePreview(cmd *cobra.Command, args []string) error {
	subs, err := parseSubstitutions(templateSubsJSON)
	if err != nil {
		return err
	}

	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tmpl, err := svc.Templates.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	result := template.RenderTemplate(tmpl, subs)
	fmt.Printf("Subject: %s\n\n%s\n", result.Subject, result.Body)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := openServices(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := svc.Templates.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Template %s deleted\n", args[0])
	return nil
}

func parseSubstitutions(data string) (template.Substitutions, error) {
	subs := template.Substitutions{}
	if err := json.Unmarshal([]byte(data), &subs); err != nil {
		return nil, fmt.Errorf("invalid substitutions JSON: %w", err)
	}
	return subs, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

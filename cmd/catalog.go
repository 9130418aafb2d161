package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/testprep/internal/catalog"
	"github.com/abhisek/testprep/internal/ui/theme"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the question catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Validate and import a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open catalog file: %w", err)
		}
		defer f.Close()

		return withApp(cmd, func(a *app) error {
			stats, err := catalog.Import(cmd.Context(), a.store, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d sections, %d subsections, %d skills, %d questions.\n",
				stats.Sections, stats.Subsections, stats.Skills, stats.Questions)
			return nil
		})
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sections, or the skills of the given sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		sections, _ := cmd.Flags().GetStringSlice("section")

		return withApp(cmd, func(a *app) error {
			pool := catalog.NewPool(a.store)
			if len(sections) == 0 {
				return listSections(cmd, pool)
			}
			skills, err := pool.Skills(cmd.Context(), sections)
			if err != nil {
				return fmt.Errorf("list skills: %w", err)
			}
			if len(skills) == 0 {
				fmt.Println("No skills found.")
				return nil
			}

			// Header.
			fmt.Println(theme.Heading.Render(fmt.Sprintf("%-28s  %-36s  %-24s  %s", "Skill", "Name", "Subsection", "Section")))
			fmt.Println(rule(104))
			for _, s := range skills {
				fmt.Printf("%-28s  %-36s  %-24s  %s\n",
					s.Slug, truncate(s.Name, 36), s.SubsectionSlug, s.SectionSlug)
			}
			fmt.Printf("\n%d skills\n", len(skills))
			return nil
		})
	},
}

func listSections(cmd *cobra.Command, pool *catalog.Pool) error {
	summaries, err := pool.Summarize(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("The catalog is empty. Run `testprep catalog import` first.")
		return nil
	}

	// Header.
	fmt.Println(theme.Heading.Render(fmt.Sprintf("%-24s  %-32s  %-13s  %s", "Section", "Name", "Category", "Skills")))
	fmt.Println(rule(82))
	for _, s := range summaries {
		fmt.Printf("%-24s  %-32s  %-13s  %6d\n",
			s.Section.Slug, truncate(s.Section.Name, 32), s.Section.Category, s.Skills)
	}
	return nil
}

func init() {
	catalogListCmd.Flags().StringSlice("section", nil, "List skills of these section slugs")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

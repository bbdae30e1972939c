// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/arxiv-harvester/internal/store"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Inspect and maintain the local paper database",
	Long: `Papers works against the local SQLite database: list stored papers with
filters, show one record, delete records, back up the database file, or
print summary statistics.`,
}

// --- list subcommand ---

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers with optional filters",
	RunE:  runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	author, _ := cmd.Flags().GetString("author")
	title, _ := cmd.Flags().GetString("title")
	abstract, _ := cmd.Flags().GetString("abstract")
	fromDate, _ := cmd.Flags().GetString("from-date")
	toDate, _ := cmd.Flags().GetString("to-date")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	orderBy, _ := cmd.Flags().GetString("order-by")
	orderDir, _ := cmd.Flags().GetString("order")

	papers, err := st.Query(cmd.Context(), store.QueryOptions{
		Author:          author,
		TitleKeyword:    title,
		AbstractKeyword: abstract,
		DateFrom:        fromDate,
		DateTo:          toDate,
		Limit:           limit,
		Offset:          offset,
		OrderBy:         orderBy,
		OrderDir:        orderDir,
	})
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}
	printPaperTable(os.Stdout, papers, 0)
	return nil
}

// --- show subcommand ---

var papersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored paper by short or full identifier",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersShow,
}

func runPapersShow(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	p, found, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("paper %q not found", args[0])
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// --- delete subcommand ---

var papersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one stored paper and prune orphaned authors",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersDelete,
}

func runPapersDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("paper %q not found", args[0])
	}
	fmt.Printf("Deleted paper %s\n", args[0])
	return nil
}

// --- backup subcommand ---

var papersBackupCmd = &cobra.Command{
	Use:   "backup <destination>",
	Short: "Copy the database to a backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersBackup,
}

func runPapersBackup(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ok, err := st.Backup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No database to back up.")
		return nil
	}
	fmt.Printf("Backed up database to %s\n", args[0])
	return nil
}

// --- stats subcommand ---

var papersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print paper counts, total and per category",
	RunE:  runPapersStats,
}

func runPapersStats(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	total, err := st.Count(cmd.Context())
	if err != nil {
		return err
	}
	byCategory, err := st.CountByCategory(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%d papers stored\n", total)
	if len(byCategory) == 0 {
		return nil
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	// Largest categories first; ties alphabetical.
	sort.Slice(categories, func(i, j int) bool {
		if byCategory[categories[i]] != byCategory[categories[j]] {
			return byCategory[categories[i]] > byCategory[categories[j]]
		}
		return categories[i] < categories[j]
	})

	fmt.Println()
	for _, c := range categories {
		label := c
		if label == "" {
			label = "(uncategorized)"
		}
		fmt.Printf("  %-16s %d\n", label, byCategory[c])
	}
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*store.Store, error) {
	return store.New(configString(cmd, "db-path"))
}

func init() {
	papersCmd.PersistentFlags().String("db-path", defaultDBPath, "path to the SQLite database")

	papersListCmd.Flags().String("author", "", "filter by author name substring")
	papersListCmd.Flags().String("title", "", "filter by title keyword")
	papersListCmd.Flags().String("abstract", "", "filter by abstract keyword")
	papersListCmd.Flags().String("from-date", "", "only papers published on or after YYYY-MM-DD")
	papersListCmd.Flags().String("to-date", "", "only papers published on or before YYYY-MM-DD")
	papersListCmd.Flags().Int("limit", 0, "maximum rows (0 = all)")
	papersListCmd.Flags().Int("offset", 0, "rows to skip")
	papersListCmd.Flags().String("order-by", "", "order by: published_date, title, arxiv_id, created_at, updated_at")
	papersListCmd.Flags().String("order", "", "order direction: asc or desc")
	papersListCmd.Flags().Bool("json", false, "output as JSON")

	papersShowCmd.Flags().Bool("json", false, "output as JSON")

	papersCmd.AddCommand(papersListCmd)
	papersCmd.AddCommand(papersShowCmd)
	papersCmd.AddCommand(papersDeleteCmd)
	papersCmd.AddCommand(papersBackupCmd)
	papersCmd.AddCommand(papersStatsCmd)

	rootCmd.AddCommand(papersCmd)
}

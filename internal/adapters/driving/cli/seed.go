package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexgraph/internal/adapters/driven/seed"
	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file.toml]",
	Short: "Load a seed document into the graph store",
	Long: `Load a TOML seed document into the configured graph store.

Paragraphs without an embedding are embedded with the configured provider.
Without a file, the built-in seed (MiCA and DORA excerpts) is loaded.
Loading replaces the contents of the store. The memory backend is not
persisted, so there a load only checks the document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	var (
		g   *domain.Graph
		err error
	)
	if len(args) == 1 {
		g, err = seed.DecodeFile(args[0])
	} else {
		g, err = seed.Default()
	}
	if err != nil {
		return err
	}

	rt, err := runtimeFor(cmd)
	if err != nil {
		return err
	}
	if rt.Loader == nil {
		return fmt.Errorf("%w: the configured store does not accept seed data", domain.ErrConfiguration)
	}

	if err := seed.Load(contextOf(cmd), g, rt.Embedder, rt.Loader); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	cmd.Printf("Loaded %d works, %d expressions, %d articles, %d paragraphs.\n",
		len(g.Works), len(g.Expressions), len(g.Articles), len(g.Paragraphs))
	if rt.Embedder == nil {
		cmd.Println(warnStyle.Render("No embedding service: paragraphs were stored without vectors."))
	}
	return nil
}

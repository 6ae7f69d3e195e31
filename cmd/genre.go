package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"AlbumShelf/db"
	"AlbumShelf/model"
	"AlbumShelf/repository"

	"github.com/spf13/cobra"
)

var genreCmd = &cobra.Command{
	Use:   "genre",
	Short: "流派管理",
}

var genreAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "添加流派 (slug 由名称生成)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := genreRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		genre := &model.Genre{Name: strings.TrimSpace(args[0])}
		if err := repo.SaveGenre(cmd.Context(), genre); err != nil {
			return err
		}
		fmt.Printf("流派 %s 已添加 (slug=%s)\n", genre.Name, genre.Slug)
		return nil
	},
}

var genreRenameCmd = &cobra.Command{
	Use:   "rename <slug> <new name>",
	Short: "重命名流派, slug 随之更新",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := genreRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		genre, err := repo.GetGenreBySlug(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("genre %q: %w", args[0], err)
		}
		genre.Name = strings.TrimSpace(args[1])
		if err := repo.SaveGenre(cmd.Context(), genre); err != nil {
			return err
		}
		fmt.Printf("流派已重命名为 %s (slug=%s)\n", genre.Name, genre.Slug)
		return nil
	},
}

var genreListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部流派",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := genreRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		genres, err := repo.ListGenres(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSLUG")
		for _, g := range genres {
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Name, g.Slug)
		}
		return w.Flush()
	},
}

var genreDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "删除流派并解除与专辑的关联",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := genreRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		genre, err := repo.GetGenreBySlug(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("genre %q: %w", args[0], err)
		}
		if err := repo.DeleteGenre(cmd.Context(), genre.ID); err != nil {
			return err
		}
		fmt.Printf("流派 %s 已删除\n", genre.Name)
		return nil
	},
}

func genreRepository() (repository.GenreRepository, func(), error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewGormGenreRepository(gdb), func() { db.Close(gdb) }, nil
}

func init() {
	genreCmd.AddCommand(genreAddCmd, genreRenameCmd, genreListCmd, genreDeleteCmd)
	rootCmd.AddCommand(genreCmd)
}

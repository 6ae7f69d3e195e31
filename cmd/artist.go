package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"AlbumShelf/db"
	"AlbumShelf/model"
	"AlbumShelf/repository"

	"github.com/spf13/cobra"
)

var artistType string

var artistCmd = &cobra.Command{
	Use:   "artist",
	Short: "艺人管理",
}

var artistAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "添加艺人",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist := &model.Artist{
			Name: strings.TrimSpace(args[0]),
			Type: model.ArtistType(strings.ToUpper(artistType)),
		}
		if artist.Name == "" {
			return fmt.Errorf("artist name must not be blank")
		}
		if !artist.Type.Valid() {
			return fmt.Errorf("invalid artist type %q (want IND or GRP)", artistType)
		}

		repo, closeDB, err := artistRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.CreateArtist(cmd.Context(), artist); err != nil {
			return err
		}
		fmt.Printf("艺人 %s 已添加 (id=%d)\n", artist.Name, artist.ID)
		return nil
	},
}

var artistListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出全部艺人",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeDB, err := artistRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		artists, err := repo.ListArtists(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE")
		for _, a := range artists {
			fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Name, a.Type.Label())
		}
		return w.Flush()
	},
}

var artistDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "删除艺人 (其专辑保留, 艺人置空)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid artist id %q", args[0])
		}
		repo, closeDB, err := artistRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.DeleteArtist(cmd.Context(), id); err != nil {
			return fmt.Errorf("artist %d: %w", id, err)
		}
		fmt.Printf("艺人 %d 已删除\n", id)
		return nil
	},
}

func artistRepository() (repository.ArtistRepository, func(), error) {
	cfg, err := setup()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewGormArtistRepository(gdb), func() { db.Close(gdb) }, nil
}

func init() {
	artistAddCmd.Flags().StringVarP(&artistType, "type", "t", string(model.ArtistIndividual), "艺人类型: IND 或 GRP")
	artistCmd.AddCommand(artistAddCmd, artistListCmd, artistDeleteCmd)
	rootCmd.AddCommand(artistCmd)
}

package cmd

import (
	"fmt"

	"AlbumShelf/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "同步数据库表结构",
	Long:  `根据模型定义创建或更新 artists、genres、albums、users 及关联表。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		gdb, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close(gdb)
		fmt.Printf("数据库迁移完成 (%s)\n", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

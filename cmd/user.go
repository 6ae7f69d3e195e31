package cmd

import (
	"errors"
	"fmt"
	"strings"

	"AlbumShelf/core/auth"
	"AlbumShelf/db"
	"AlbumShelf/model"
	"AlbumShelf/repository"

	"github.com/spf13/cobra"
)

var (
	userPassword string
	userStaff    bool
	userRevoke   bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "用户管理",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "创建用户",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := strings.TrimSpace(args[0])
		if username == "" {
			return errors.New("username must not be blank")
		}
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return fmt.Errorf("--password: %w", err)
		}

		cfg, err := setup()
		if err != nil {
			return err
		}
		gdb, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		user := &model.User{Username: username, PasswordHash: hash, IsStaff: userStaff}
		if err := repository.NewGormUserRepository(gdb).CreateUser(cmd.Context(), user); err != nil {
			return err
		}
		fmt.Printf("用户 %s 已创建 (id=%d, staff=%t)\n", user.Username, user.ID, user.IsStaff)
		return nil
	},
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "授予或撤销管理员权限",
	Args:  cobra.ExactArgs(1),
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

		if err := repository.NewGormUserRepository(gdb).SetStaff(cmd.Context(), args[0], !userRevoke); err != nil {
			return fmt.Errorf("user %q: %w", args[0], err)
		}
		fmt.Printf("用户 %s staff=%t\n", args[0], !userRevoke)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", fmt.Sprintf("登录密码 (至少 %d 个字符)", auth.MinPasswordLength))
	userCreateCmd.Flags().BoolVar(&userStaff, "staff", false, "创建管理员账号")
	userPromoteCmd.Flags().BoolVar(&userRevoke, "revoke", false, "撤销管理员权限")
	userCmd.AddCommand(userCreateCmd, userPromoteCmd)
	rootCmd.AddCommand(userCmd)
}

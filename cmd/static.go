package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"AlbumShelf/storage"
	"AlbumShelf/web"

	"github.com/spf13/cobra"
)

var staticPrefix string

var staticCmd = &cobra.Command{
	Use:   "static",
	Short: "MinIO 静态资源管理",
}

var staticSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "上传内置静态资源到 MinIO 存储桶",
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, err := openBucket()
		if err != nil {
			return err
		}
		if err := bucket.EnsureBucket(cmd.Context()); err != nil {
			return err
		}
		n, err := bucket.SyncFS(cmd.Context(), web.Static())
		if err != nil {
			return err
		}
		fmt.Printf("已上传 %d 个文件到存储桶 %s\n", n, bucket.Name())
		return nil
	},
}

var staticListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出存储桶中的静态资源",
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, err := openBucket()
		if err != nil {
			return err
		}
		objects, err := bucket.ListObjects(cmd.Context(), staticPrefix)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tLAST MODIFIED")
		var total int64
		for _, o := range objects {
			fmt.Fprintf(w, "%s\t%d\t%s\n", o.Key, o.Size, o.LastModified.Format("2006-01-02 15:04:05"))
			total += o.Size
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("共 %d 个对象, %d 字节\n", len(objects), total)
		return nil
	},
}

func openBucket() (*storage.Bucket, error) {
	cfg, err := setup()
	if err != nil {
		return nil, err
	}
	if !cfg.MinioEnabled() {
		return nil, fmt.Errorf("MINIO_ENDPOINT is not set")
	}
	return storage.NewBucket(cfg)
}

func init() {
	staticListCmd.Flags().StringVarP(&staticPrefix, "prefix", "p", "", "只列出该前缀下的对象")
	staticCmd.AddCommand(staticSyncCmd, staticListCmd)
	rootCmd.AddCommand(staticCmd)
}

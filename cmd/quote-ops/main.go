// Command quote-ops is the operator's toolbox for the quote backend: issue
// a bearer token for the admin routes, re-sign an attachment link after the
// emailed one has expired, or delete an upload.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ebdesignwerks/quotebackend/config"
	"github.com/ebdesignwerks/quotebackend/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "quote-ops",
	Short:         "Operator tools for the EB Design Werks quote backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an operator bearer token",
	Long: `Issue a bearer token for the /admin routes, signed with OPERATOR_JWT_SECRET.

Example:
  quote-ops token --subject eb --ttl 2h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := utils.GenerateOperatorToken(cfg.OperatorJWTSecret, subject, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var presignCmd = &cobra.Command{
	Use:   "presign <key>",
	Short: "Print a fresh download link for an uploaded attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store utils.ObjectStore) error {
			url, err := store.Presign(ctx, args[0], utils.PresignTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete an uploaded attachment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !utils.IsQuoteUploadKey(key) {
			return fmt.Errorf("%q is not a quote upload key", key)
		}
		return withStore(cmd.Context(), func(ctx context.Context, store utils.ObjectStore) error {
			if err := store.Delete(ctx, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			return nil
		})
	},
}

func withStore(ctx context.Context, fn func(context.Context, utils.ObjectStore) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	store, err := utils.NewObjectStore(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer c.Close()
	}
	return fn(ctx, store)
}

func init() {
	tokenCmd.Flags().String("subject", "operator", "token subject")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(tokenCmd, presignCmd, deleteCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a workflow tree editor",
	Long: `Arbor edits workflow trees of start, action, branch and end nodes,
with undo/redo, automatic layout, validation and Mermaid/SVG export.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("store", cli.StoreFile, "Document store: memory, file, redis or sqlite")
	flags.String("dir", filepath.Join(".arbor", "workflows"), "Directory of the file store")
	flags.String("format", "json", "Document format of the file store: json or yaml")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Duration("redis-ttl", 0, "Expire stored workflows after this long (0 keeps them)")
	flags.String("sqlite", "arbor.db", "SQLite database path")
	flags.StringP("workflow", "w", "default", "Workflow ID")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("encryption-key", os.Getenv("ARBOR_ENCRYPTION_KEY"), "Hex AES-256 key sealing stored workflows (env ARBOR_ENCRYPTION_KEY)")
	flags.StringSlice("fallback-keys", nil, "Previous hex keys still accepted when opening workflows")
}

// configFrom reads the persistent flags.
func configFrom(cmd *cobra.Command) cli.Config {
	flags := cmd.Flags()
	var c cli.Config
	c.Store, _ = flags.GetString("store")
	c.Dir, _ = flags.GetString("dir")
	c.Format, _ = flags.GetString("format")
	c.RedisAddr, _ = flags.GetString("redis-addr")
	c.RedisPass, _ = flags.GetString("redis-password")
	c.RedisDB, _ = flags.GetInt("redis-db")
	c.RedisTTL, _ = flags.GetDuration("redis-ttl")
	c.SQLitePath, _ = flags.GetString("sqlite")
	c.WorkflowID, _ = flags.GetString("workflow")
	c.Debug, _ = flags.GetBool("debug")
	c.JSONLogs, _ = flags.GetBool("log-json")
	c.EncryptionKey, _ = flags.GetString("encryption-key")
	c.FallbackKeys, _ = flags.GetStringSlice("fallback-keys")
	return c
}

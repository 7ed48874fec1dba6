package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wsync-go/internal/app"
	"wsync-go/internal/config"
	"wsync-go/internal/crypt"
	"wsync-go/internal/ws"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	sessionID := time.Now().UTC().Format("20060102T150405Z")
	a, err := app.New(context.Background(), cfg, sessionID)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "wsync",
	Short: "Local-first workspace store with cloud backup",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitRemote string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID := uuid.New().String()
		cfg := config.NewConfig(userID, defaults["base_dir"])

		if configInitRemote == "s3" {
			cfg.Remote = config.RemoteConfig{Type: "s3"}
			cfg.Remote.S3Bucket = prompt("S3 bucket: ")
			cfg.Remote.S3Region = prompt("S3 region: ")
			cfg.Remote.S3Prefix = prompt("S3 key prefix (optional): ")
			cfg.Remote.S3AccessKey = prompt("S3 access key (empty for ambient credentials): ")
			if cfg.Remote.S3AccessKey != "" {
				secret, err := promptSecret("S3 secret key: ")
				if err != nil {
					return fmt.Errorf("reading secret key: %w", err)
				}
				cfg.Remote.S3SecretKey = secret
			}
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:   %s\n", cfg.UserID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Remote:    %s\n", cfg.Remote.Type)
		fmt.Printf("Sync:      enabled=%v\n", cfg.Sync.Enabled)
		return nil
	},
}

var configKeysInitCmd = &cobra.Command{
	Use:   "keys-init",
	Short: "Generate an age key pair for snapshot encryption",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if cfg.Encryption.Type != "age" {
			return fmt.Errorf("encryption.type is %q, set it to \"age\" first", cfg.Encryption.Type)
		}

		enc := crypt.NewAgeEncryptor(cfg.Encryption)
		if err := enc.Setup(); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Key pair written to %s and %s\n",
			cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// workspace command

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		workspaces, err := a.Workspaces(cmd.Context())
		if err != nil {
			return err
		}
		for _, w := range workspaces {
			pin := " "
			if w.Pinned {
				pin = "*"
			}
			fmt.Printf("%s %-36s  %-24s  %s\n", pin, w.ID, w.Slug, w.LastActivity.Format(time.RFC3339))
		}
		return nil
	},
}

var workspaceCreateDescription string

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.Service().CreateWorkspace(cmd.Context(), ws.CreateWorkspaceRequest{
			OwnerID:     a.UserID(),
			Name:        args[0],
			Description: workspaceCreateDescription,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created workspace %s (%s)\n", w.Slug, w.ID)
		return nil
	},
}

var workspaceRmCmd = &cobra.Command{
	Use:   "rm <workspace-id>",
	Short: "Delete a workspace and all its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().DeleteWorkspace(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted workspace %s\n", args[0])
		return nil
	},
}

var workspaceEnterCmd = &cobra.Command{
	Use:   "enter <workspace-id>",
	Short: "Enter a workspace, restoring from cloud when appropriate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		restored := a.EnterWorkspace(cmd.Context(), args[0], false)
		if restored {
			fmt.Println("Restored workspace data from cloud backup")
		} else {
			fmt.Println("Using local workspace data")
		}
		return nil
	},
}

// files command

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect workspace files",
}

var filesLsCmd = &cobra.Command{
	Use:   "ls <workspace-id>",
	Short: "List file records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.Service().Files(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, f := range files {
			kind := "file"
			if f.IsDirectory {
				kind = "dir"
			}
			fmt.Printf("%-4s  %8d  %s\n", kind, f.Size, f.Path)
		}
		return nil
	},
}

var filesTreeCmd = &cobra.Command{
	Use:   "tree <workspace-id>",
	Short: "Print the file tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.Service().Tree(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		printTree(nodes, 0)
		return nil
	},
}

func printTree(nodes []*ws.TreeNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n.Kind == ws.NodeFolder {
			fmt.Printf("%s%s/\n", indent, n.Name)
			printTree(n.Children, depth+1)
		} else {
			fmt.Printf("%s%s\n", indent, n.Name)
		}
	}
}

// backup and restore commands

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Push a snapshot to the remote store now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.BackupNow(cmd.Context()) {
			return fmt.Errorf("backup did not complete")
		}
		fmt.Println("Snapshot uploaded")
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace local state with the latest remote snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.Restore(cmd.Context()) {
			return fmt.Errorf("restore did not complete, local data kept")
		}
		fmt.Println("Local state restored from remote snapshot")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check remote store connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateRemote(cmd.Context()); err != nil {
			return fmt.Errorf("remote check failed: %w", err)
		}
		fmt.Println("Remote store reachable")
		return nil
	},
}

func prompt(label string) string {
	fmt.Print(label)
	var value string
	fmt.Scanln(&value)
	return strings.TrimSpace(value)
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(secret)), nil
}

func init() {
	configInitCmd.Flags().StringVar(&configInitRemote, "remote", "filesystem", "remote store type (filesystem, s3, memory)")
	workspaceCreateCmd.Flags().StringVar(&workspaceCreateDescription, "description", "", "workspace description")

	configCmd.AddCommand(configInitCmd, configListCmd, configKeysInitCmd)
	workspaceCmd.AddCommand(workspaceListCmd, workspaceCreateCmd, workspaceRmCmd, workspaceEnterCmd)
	filesCmd.AddCommand(filesLsCmd, filesTreeCmd)
	rootCmd.AddCommand(configCmd, workspaceCmd, filesCmd, backupCmd, restoreCmd, statusCmd)
}

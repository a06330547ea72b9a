package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// policyWatchCmd represents the policy watch command
var policyWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a file and reload the policy if it's modified",
	Long: `Watch a file and reload the policy when it changes.

To trigger a reload of the policy, replace the contents of the watched file
with the path to the policy. The path must be visible to the process running
"vaultctl policy watch".

Example:
  vaultctl policy watch /run/credvault/policy/load`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := watchPolicy(args[0]); err != nil {
			fail("Failed to watch policy: %v", err)
		}
	},
}

func init() {
	policyCmd.AddCommand(policyWatchCmd)
}

func watchPolicy(filename string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	log := rt.log.WithField("file", filename)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filename); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", filename, err)
	}

	log.Info("watching for policy changes")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			content, err := os.ReadFile(filename)
			if err != nil {
				log.WithError(err).Error("failed to read trigger file")
				continue
			}
			policyPath := strings.TrimSpace(string(content))
			if policyPath == "" {
				continue
			}

			result, err := loadPolicyFromPath(ctx, rt, policyPath, "", false)
			if err != nil {
				log.WithError(err).WithField("policy", policyPath).Error("failed to load policy")
				continue
			}
			log.WithField("policy", policyPath).
				WithField("sha256", result.SHA256).
				Info("policy loaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		}
	}
}

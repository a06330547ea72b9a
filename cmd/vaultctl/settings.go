package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/store"
)

// settingParsers validates and normalizes values of known runtime settings.
var settingParsers = map[string]func(string) (string, error){
	store.SettingAuditPersonalCredentials: func(v string) (string, error) {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return "", fmt.Errorf("expected true or false")
		}
		return strconv.FormatBool(b), nil
	},
}

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change runtime settings",
	Long: `Show and change runtime settings stored in the database.

Runtime settings take effect immediately on every running server.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'settings' requires a subcommand (show, set)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show runtime settings",
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime()
		if err != nil {
			fail("Failed to show settings: %v", err)
		}
		if err := showSettings(context.Background(), rt); err != nil {
			fail("Failed to show settings: %v", err)
		}
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a runtime setting",
	Long: `Change a runtime setting. The change is recorded in the audit trail.

Example:
  vaultctl settings set audit_personal_credentials false`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		actor, _ := cmd.Flags().GetString("actor")

		rt, err := newRuntime()
		if err != nil {
			fail("Failed to change setting: %v", err)
		}
		if err := setSetting(context.Background(), rt, actor, args[0], args[1]); err != nil {
			fail("Failed to change setting: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsSetCmd.Flags().String("actor", "", "user id recorded as the actor of the change")
}

func showSettings(ctx context.Context, rt *runtime) error {
	stored, err := rt.settings.ListSettings(ctx)
	if err != nil {
		return err
	}
	values := make(map[string]string, len(stored))
	for _, s := range stored {
		values[s.Key] = s.Value
	}

	keys := make([]string, 0, len(settingParsers))
	for key := range settingParsers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, key := range keys {
		value, source := values[key], "database"
		if _, ok := values[key]; !ok {
			value, source = strconv.FormatBool(rt.cfg.AuditPersonalCredentials), "configuration"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", key, value, source)
	}
	return w.Flush()
}

func setSetting(ctx context.Context, rt *runtime, actor, key, value string) error {
	parse, ok := settingParsers[key]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	normalized, err := parse(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	previous, _, err := rt.settings.GetSetting(ctx, key)
	if err != nil {
		return err
	}
	if err := rt.settings.SetSetting(ctx, key, normalized); err != nil {
		return err
	}

	rt.recorder.Record(ctx, audit.Entry{
		Action:  audit.ActionSettingsUpdate,
		ActorID: actor,
		Change:  audit.Diff(map[string]string{key: previous}, map[string]string{key: normalized}),
	})
	fmt.Printf("%s=%s\n", key, normalized)
	return nil
}

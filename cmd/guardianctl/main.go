package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"guardian-inventory/internal/app"
	"guardian-inventory/internal/config"
	"guardian-inventory/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp reads the config and builds the engine without contacting the
// remote. The caller must defer a.Close().
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	return a, nil
}

// newApp is openApp plus the catalog version check.
func newApp(ctx context.Context) (*app.App, error) {
	a, err := openApp()
	if err != nil {
		return nil, err
	}
	if err := a.Catalog.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("checking catalog version: %w", err)
	}
	return a, nil
}

// loadedApp is newApp plus one account refresh.
func loadedApp(ctx context.Context) (*app.App, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.Service.Refresh(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("loading account: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "guardianctl",
	Short:        "Inspect and manage a guardian's inventory",
	SilenceUsage: true,
}

// catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the reference data cache",
}

var catalogStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog version and resident tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		stats := a.Catalog.Stats()
		fmt.Fprintf(out, "Version: %s\n", stats.Version)
		fmt.Fprintf(out, "Store:   %s\n", a.StoreType)
		for _, t := range stats.Tables {
			fmt.Fprintf(out, "  %s (%d records)\n", t.Name, t.Entries)
		}
		if reporter := a.StatsReporter(); reporter != nil {
			if durable, err := reporter.GetStats(cmd.Context()); err == nil {
				if entries, ok := durable["entries"]; ok {
					fmt.Fprintf(out, "Entries: %v\n", entries)
				}
			}
		}
		return nil
	},
}

var catalogPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached catalog table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Service.PurgeCatalog(cmd.Context())
		if err != nil {
			return fmt.Errorf("purging catalog: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d tables\n", n)
		return nil
	},
}

var catalogLookupCmd = &cobra.Command{
	Use:   "lookup <table> <hash>...",
	Short: "Print catalog records as JSON",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hashes, err := parseHashes(args[1:])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		defs, err := a.Service.Definitions(cmd.Context(), args[0], hashes)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	},
}

// power command
var powerCmd = &cobra.Command{
	Use:   "power <titan|hunter|warlock>",
	Short: "Compute the maximum reachable power for a class",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		class, err := model.ParseClass(args[0])
		if err != nil {
			return err
		}

		a, err := loadedApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service.MaxPower(cmd.Context(), class)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Class:\t%s\n", result.Class)
		fmt.Fprintf(w, "Weapons:\t%d\n", result.Weapons)
		fmt.Fprintf(w, "Armor:\t%d\n", result.Armor)
		fmt.Fprintf(w, "Base:\t%.2f\n", result.Base)
		fmt.Fprintf(w, "Artifact:\t+%d\n", result.ArtifactBonus)
		fmt.Fprintf(w, "Total:\t%.2f\n", result.Total)
		return w.Flush()
	},
}

// move command
var moveCmd = &cobra.Command{
	Use:   "move <instance-id> <item-hash> <vault|character-id>",
	Short: "Move an item to the vault or a character",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := model.ParseHash(args[1])
		if err != nil {
			return err
		}
		target, err := model.ParseLocation(args[2])
		if err != nil {
			return err
		}

		a, err := loadedApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.Move(cmd.Context(), args[0], hash, target); err != nil {
			return fmt.Errorf("moving %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], target)
		return nil
	},
}

// tag command
var tagCmd = &cobra.Command{
	Use:   "tag <instance-id> [value]",
	Short: "Set or clear an item's tag or note",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetBool("note")
		kind := model.AnnotationTag
		if note {
			kind = model.AnnotationNote
		}
		var value *string
		if len(args) == 2 {
			value = &args[1]
		}

		a, err := loadedApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.SetAnnotation(cmd.Context(), args[0], kind, value); err != nil {
			return err
		}
		if value == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s of %s\n", kind, args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s of %s to %q\n", kind, args[0], *value)
		}
		return nil
	},
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "List items whose kind is held more than once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadedApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		view := a.Service.Inventory(true)
		printItems(cmd.OutOrStdout(), view.Items, view.Duplicates, func(hash uint32) string {
			if def, ok := a.Catalog.ItemDefinition(hash); ok {
				return def.Properties.Name
			}
			return ""
		})
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transfers",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		logs, total, err := a.Service.TransferLogs(cmd.Context(), 1, limit)
		if err != nil {
			return err
		}
		if total == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No transfers recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tITEM\tFROM\tTO\tSTATUS\tMS")
		for _, l := range logs {
			status := string(l.Status)
			if l.ErrorMessage != "" {
				status += ": " + l.ErrorMessage
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
				l.CreatedAt.Local().Format("2006-01-02 15:04:05"), l.InstanceID, l.Source, l.Target, status, l.ExecutionTimeMs)
		}
		return w.Flush()
	},
}

func init() {
	// catalog command
	catalogCmd.AddCommand(catalogStatusCmd)
	catalogCmd.AddCommand(catalogPurgeCmd)
	catalogCmd.AddCommand(catalogLookupCmd)

	tagCmd.Flags().Bool("note", false, "Set the note instead of the tag")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of transfers to show")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(historyCmd)
}

func parseHashes(args []string) ([]uint32, error) {
	hashes := make([]uint32, 0, len(args))
	for _, s := range args {
		hash, err := model.ParseHash(s)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

// printItems lists the items whose instance id is in ids.
func printItems(out io.Writer, items []model.InventoryItem, ids []string, name func(uint32) string) {
	if len(ids) == 0 {
		fmt.Fprintln(out, "No duplicates.")
		return
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE\tNAME\tPOWER\tOWNER")
	for _, item := range items {
		if !want[item.InstanceID()] {
			continue
		}
		label := strings.TrimSpace(name(item.ItemHash))
		if label == "" {
			label = fmt.Sprint(item.ItemHash)
		}
		power, _ := item.Power()
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", item.InstanceID(), label, power, item.Owner)
	}
	w.Flush()
}

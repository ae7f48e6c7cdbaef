package cmd

import (
	"context"
	"fmt"
	"os"

	"compat-merger/core/job"
	"compat-merger/feature/patcher"
	"compat-merger/feature/records"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the installation and report installed mods",
	Long:  `Indexes every archive of the installation, preloads maps, heroes and creatures and prints what was found. Nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		svc, err := a.service(false)
		if err != nil {
			return err
		}

		tracker := job.NewTracker()
		tracker.SetPhases(patcher.ScanPhases)
		stop := cancelOnSignal(tracker, a.logger)
		defer stop()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go reportProgress(ctx, tracker, a.logger)

		snap, err := svc.Scan(ctx, tracker)
		if err != nil {
			return interrupted(err, a.logger)
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Summary)
		}
		printSummary(snap.Summary)
		return nil
	},
}

func printSummary(s patcher.Summary) {
	fmt.Printf("Archives: %d (%d indexed files)\n", s.Archives, s.Entries)
	fmt.Println("Maps:")
	for _, c := range records.Categories() {
		fmt.Printf("  %-15s %d\n", c, s.Maps[c])
	}
	fmt.Printf("Heroes:    %d\n", s.Heroes)
	fmt.Printf("Creatures: %d\n", s.Creatures)
	fmt.Println("Mods:")
	printMarker("all heroes", s.Mods.AllHeroes)
	printMarker("all spells and artifacts", s.Mods.AllSpellsArtifacts)
	printMarker("racial ability boost", s.Mods.RacialBoost)
}

func printMarker(name string, m records.Marker) {
	if !m.Present {
		fmt.Printf("  %-25s not installed\n", name)
		return
	}
	fmt.Printf("  %-25s installed (%s)\n", name, m.Archive)
}

func init() {
	scanCmd.Flags().Bool("json", false, "Print the summary as JSON")
	RootCmd.AddCommand(scanCmd)
}

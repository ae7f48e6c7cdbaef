package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"compat-merger/core/job"
	"compat-merger/feature/patcher"
	"compat-merger/feature/records"
	"compat-merger/feature/transform"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Presets name common selections.
var presets = map[string][]string{
	"all":      {"scenario=all", "singlemissions=all", "multiplayer=all", "customized=all"},
	"official": {"scenario=all", "singlemissions=all", "multiplayer=all"},
	"custom":   {"customized=all"},
}

// parseSelection builds a selection from "category=option,option" specs,
// optionally seeded by a preset.
func parseSelection(specs []string, preset string, boostHeroes bool) (transform.Selection, error) {
	sel := transform.Selection{Maps: make(map[records.Category]transform.Options), BoostHeroes: boostHeroes}

	if preset != "" {
		p, ok := presets[strings.ToLower(preset)]
		if !ok {
			return sel, fmt.Errorf("unknown preset %q", preset)
		}
		specs = append(append([]string{}, p...), specs...)
	}

	for _, spec := range specs {
		name, opts, ok := strings.Cut(spec, "=")
		if !ok {
			return sel, fmt.Errorf("invalid category %q, expected name=option[,option]", spec)
		}
		cat, err := records.ParseCategory(name)
		if err != nil {
			return sel, err
		}
		o := sel.Maps[cat]
		for _, opt := range strings.Split(opts, ",") {
			if err := o.Enable(opt); err != nil {
				return sel, fmt.Errorf("category %s: %w", cat, err)
			}
		}
		sel.Maps[cat] = o
	}

	return sel, sel.Validate()
}

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the compatibility patch",
	Long: `Scans the installation and writes the compatibility patch.

Options are chosen per map category:

  compat-merger generate --category scenario=all_heroes,racial_boost --category customized=all
  compat-merger generate --preset official --boost-heroes

Categories: scenario, singlemissions, multiplayer, customized.
Options: all_heroes, all_spells_artifacts, racial_boost, all.
Ctrl-C stops after the current record and leaves no patch behind.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, _ := cmd.Flags().GetStringArray("category")
		preset, _ := cmd.Flags().GetString("preset")
		boost, _ := cmd.Flags().GetBool("boost-heroes")

		sel, err := parseSelection(specs, preset, boost)
		if err != nil {
			return err
		}

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
		tracker.SetPhases(patcher.ScanPhases + patcher.GeneratePhases)
		stop := cancelOnSignal(tracker, a.logger)
		defer stop()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go reportProgress(ctx, tracker, a.logger)

		snap, err := svc.Scan(ctx, tracker)
		if err != nil {
			return interrupted(err, a.logger)
		}
		report, err := svc.Generate(ctx, snap, sel, tracker)
		if err != nil {
			return interrupted(err, a.logger)
		}

		a.logger.Info("Done",
			zap.String("patch", a.cfg.Patch.Path()),
			zap.Int("maps", report.MapsWritten),
			zap.Int("heroes", report.HeroesWritten),
			zap.Int("creatures", report.Creatures))

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringArray("category", nil, "Options for one map category, as name=option[,option] (repeatable)")
	generateCmd.Flags().String("preset", "", "Start from a preset selection (all, official, custom)")
	generateCmd.Flags().Bool("boost-heroes", false, "Also apply the racial boost to hero records")
	generateCmd.Flags().Bool("json", false, "Print the run report as JSON")
	RootCmd.AddCommand(generateCmd)
}

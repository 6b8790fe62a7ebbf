package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	"github.com/yanqian/exoplanet-classifier/internal/infra/historystore"
	"github.com/yanqian/exoplanet-classifier/internal/infra/storage"
)

var (
	classifyParams parameterFlags
	classifyExport string

	validateParams parameterFlags
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a single planet",
	Long: `Classify a single planet against the remote backend.

Parameters start from a preset and can be overridden one by one. The backend
is warmed up first when it has not answered yet.

Examples:
  exoctl classify
  exoctl classify --preset hot_jupiter
  exoctl classify -s planet_radius=1.4 -s koi_model_snr=25 -s fp_stellar_eclipse=false
  exoctl classify -f planet.json --export result.csv`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

var validateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Check a parameter set against the accepted ranges",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{offlineAnnotation: "true"},
	RunE:        runValidate,
}

var presetsCmd = &cobra.Command{
	Use:         "presets",
	Short:       "List the built-in parameter presets",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{offlineAnnotation: "true"},
	RunE:        runPresets,
}

func init() {
	classifyParams.register(classifyCmd)
	classifyCmd.Flags().StringVarP(&classifyExport, "export", "o", "", "write the result as CSV to this file")

	validateParams.register(validateCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	store, err := classifyParams.build()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !store.Submittable() {
		printValidation(out, store.Errors())
		return fmt.Errorf("parameters out of range")
	}

	svc := classifier.NewService(classifier.Config{}, client, historystore.NewMemoryStore(1), storage.NewMemoryStorage(), appLog)
	ctx := context.Background()
	params := store.Snapshot()
	resp, err := svc.Classify(ctx, params)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(out, resp); err != nil {
			return err
		}
	} else {
		r := resp.Result
		fmt.Fprintf(out, "Prediction:    %s (%.1f%% confidence)\n", r.PlanetType, r.Confidence)
		fmt.Fprintf(out, "Size:          %s\n", r.SizeCategory)
		fmt.Fprintf(out, "Temperature:   %.0f K\n", r.Temperature)
		fmt.Fprintf(out, "Habitability:  %.1f\n", r.HabitabilityScore)
		fmt.Fprintf(out, "Habitable zone: %.2f-%.2f AU (planet at %.2f AU)\n", resp.HabitableZone.InnerAU, resp.HabitableZone.OuterAU, resp.HabitableZone.PlanetAU)
	}

	if classifyExport != "" {
		content, err := classifier.ExportSingle(params, resp.Result, time.Now())
		if err != nil {
			return err
		}
		if err := writeFile(classifyExport, content); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", classifyExport)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	store, err := validateParams.build()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	errs := store.Errors()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"valid":      len(errs) == 0,
			"errors":     errs,
			"parameters": store.Snapshot(),
		})
	}
	if len(errs) == 0 {
		fmt.Fprintln(out, "Parameters are valid.")
		return nil
	}
	printValidation(out, errs)
	return fmt.Errorf("%d parameter(s) out of range", len(errs))
}

func runPresets(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	presets := make(map[string]classifier.ParameterSet)
	for _, name := range classifier.Presets() {
		p, _ := classifier.Preset(name)
		presets[name] = p
	}
	if jsonOutput {
		return printJSON(out, presets)
	}
	for _, name := range classifier.Presets() {
		p := presets[name]
		fmt.Fprintf(out, "%-12s period=%gd radius=%gR⊕ mass=%gM⊕ teff=%gK\n", name, p.OrbitalPeriod, p.PlanetRadius, p.PlanetMass, p.StellarTemperature)
	}
	return nil
}

func printValidation(w io.Writer, errs []classifier.ValidationError) {
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %s\n", e.Parameter, e.Message)
	}
}

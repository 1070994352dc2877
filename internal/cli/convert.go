package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voltlab/distflow/pkg/network"
)

// convertCommand creates the convert command: OpenDSS circuit in,
// network model JSON out.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		output  string
		vBase   float64
		sBase   float64
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "convert <circuit.dss>",
		Short: "Extract a network model from an OpenDSS circuit",
		Long: `Convert parses an OpenDSS master file (including any Redirect files)
and writes the distflow network model: buses, 3x3 line impedances in
ohms, and per-phase spot loads in kW/kvar.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := c.pipelineOptions(args[0], "", refresh)
			if vBase > 0 {
				opts.VBaseKVLL = vBase
			}
			if sBase > 0 {
				opts.SBaseMVA = sBase
			}

			prog := newProgress(logger)
			m, cached, err := runner.Convert(cmd.Context(), opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Extracted %d buses", len(m.Nodes)))

			if output == "" {
				output = defaultModelPath(args[0])
			}
			if err := network.WriteModelFile(m, output); err != nil {
				return err
			}

			printSuccess("Model written")
			printFile(output)
			printStats(len(m.Nodes), len(m.Lines), len(m.Loads), cached)
			printNewline()
			printNextStep("Solve it", fmt.Sprintf("%s solve --model %s", appName, output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output model path (default <circuit>.json)")
	cmd.Flags().Float64Var(&vBase, "v-base", 0, "line-to-line voltage base in kV (default from circuit)")
	cmd.Flags().Float64Var(&sBase, "s-base", 0, "apparent power base in MVA (default from circuit)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the model cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-extract even if cached")

	return cmd
}

// defaultModelPath swaps the circuit extension for .json.
func defaultModelPath(circuit string) string {
	ext := filepath.Ext(circuit)
	return strings.TrimSuffix(circuit, ext) + ".json"
}

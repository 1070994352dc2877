package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voltlab/distflow/pkg/report"
)

// Diagram formats for the render command.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// renderCommand creates the render command: feeder diagrams and
// voltage profile plots.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
		profile  string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "render <circuit.dss|model.json>",
		Short: "Render a feeder diagram or voltage profile",
		Long: `Render draws the feeder one-line diagram via Graphviz. With --profile
it additionally solves the power flow and plots the per-phase voltage
magnitude against bus position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			circuit, model := splitInput(args[0])
			opts := c.pipelineOptions(circuit, model, false)

			res, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}

			dot := report.ToDOT(res.Model, report.DotOptions{Root: res.Root, Detailed: detailed})

			if output == "" {
				base := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				output = base + "." + format
			}

			switch format {
			case FormatDOT:
				if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			case FormatSVG, FormatPNG:
				spin := newSpinner("Rendering diagram")
				spin.Start()
				var data []byte
				if format == FormatSVG {
					data, err = report.RenderSVG(cmd.Context(), dot)
				} else {
					data, err = report.RenderPNG(cmd.Context(), dot)
				}
				if err != nil {
					spin.Stop()
					return err
				}
				spin.StopWithSuccess("Diagram rendered")
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
			default:
				return fmt.Errorf("unknown format %q (want dot, svg, or png)", format)
			}
			printFile(output)

			if profile != "" {
				if err := report.SaveProfile(res.Nodes, res.Voltages, profile); err != nil {
					return err
				}
				printFile(profile)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatSVG, "diagram format: dot, svg, or png")
	cmd.Flags().StringVarP(&output, "output", "o", "", "diagram output path (default <input>.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label edges with segment names and lengths")
	cmd.Flags().StringVar(&profile, "profile", "", "also write a voltage profile plot (.png, .svg, or .pdf)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the cache")

	return cmd
}

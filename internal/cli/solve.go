package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/pipeline"
	"github.com/voltlab/distflow/pkg/report"
)

// Output formats for solve results.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// solveCommand creates the solve command: run the power flow and
// report per-bus voltage magnitudes.
func (c *CLI) solveCommand() *cobra.Command {
	var (
		format      string
		output      string
		rootVoltage string
		interactive bool
		noCache     bool
		refresh     bool
	)

	cmd := &cobra.Command{
		Use:   "solve <circuit.dss|model.json>",
		Short: "Run the power flow and report per-bus voltages",
		Long: `Solve evaluates the LinDist3Flow linearized power flow for the given
feeder. A .dss input is converted first (cached); a .json input is used
as-is. Voltages are reported per phase in per-unit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			runner, err := c.newRunner(noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			circuit, model := splitInput(args[0])
			opts := c.pipelineOptions(circuit, model, refresh)
			opts.RootVoltage, err = parseRootVoltage(rootVoltage)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			res, err := runner.Execute(cmd.Context(), opts)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Solved %d buses", len(res.Nodes)))

			if !res.RootFound {
				printWarning("No recognized source bus; solved from %q", res.Root)
			}
			if len(res.SkippedLoads) > 0 {
				printDetail("loads ignored on unreachable buses: %s", strings.Join(res.SkippedLoads, ", "))
			}

			if interactive {
				_, err := tea.NewProgram(newVoltageModel(res)).Run()
				return err
			}
			if err := writeResult(res, format, output); err != nil {
				return err
			}
			if output == "" {
				printStats(res.Stats.NodeCount, res.Stats.LineCount, res.Stats.LoadCount,
					res.CacheInfo.SolveCached)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "output format: table, json, or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().StringVar(&rootVoltage, "root-voltage", "", "root voltage in p.u., one value or a,b,c (default 1.0)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the result in a TUI")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if cached")

	return cmd
}

// splitInput classifies the positional argument by extension. Anything
// that is not a model JSON is treated as an OpenDSS circuit.
func splitInput(arg string) (circuit, model string) {
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return "", arg
	}
	return arg, ""
}

// parseRootVoltage parses the --root-voltage flag: empty (unity), a
// single per-unit value applied to all phases, or three comma-separated
// per-phase values.
func parseRootVoltage(s string) (phase.Vector3, error) {
	if s == "" {
		return phase.Vector3{}, nil
	}
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return phase.Vector3{}, fmt.Errorf("invalid root voltage %q", s)
		}
		return phase.Vector3{v, v, v}, nil
	case 3:
		var out phase.Vector3
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return phase.Vector3{}, fmt.Errorf("invalid root voltage %q", s)
			}
			out[i] = v
		}
		return out, nil
	default:
		return phase.Vector3{}, fmt.Errorf("root voltage needs 1 or 3 values, got %d", len(parts))
	}
}

// writeResult emits the solve result in the requested format.
func writeResult(res *pipeline.Result, format, output string) error {
	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case FormatTable:
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			Headers(report.Header...).
			Rows(report.Rows(res.Nodes, res.Voltages)...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == -1 {
					return lipgloss.NewStyle().Foreground(colorGray).Bold(true)
				}
				if col == 0 {
					return lipgloss.NewStyle().Foreground(colorWhite)
				}
				return lipgloss.NewStyle().Foreground(colorCyan)
			})
		fmt.Fprintln(out, t.Render())
		return nil

	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)

	case FormatCSV:
		w := csv.NewWriter(out)
		if err := w.Write(report.Header); err != nil {
			return err
		}
		if err := w.WriteAll(report.Rows(res.Nodes, res.Voltages)); err != nil {
			return err
		}
		w.Flush()
		return w.Error()

	default:
		return fmt.Errorf("unknown format %q (want table, json, or csv)", format)
	}
}

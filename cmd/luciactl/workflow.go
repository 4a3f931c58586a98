package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AIX-Clever/chat-booking-admin/internal/workflow"
)

// errCheckFailed makes `workflow check` exit non-zero after printing findings.
var errCheckFailed = errors.New("workflow check failed")

func newWorkflowCmd(out printerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Convert and check workflow documents",
	}
	cmd.AddCommand(newWorkflowDecodeCmd(out), newWorkflowEncodeCmd(out), newWorkflowCheckCmd(out))
	return cmd
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func newWorkflowDecodeCmd(out printerFunc) *cobra.Command {
	var stepsPath, metadataPath, positionsPath string

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Build the editor graph from a step map",
		Long: `Decode reads a stored step map and its layout and prints the editor graph.
Layout comes from a metadata document (--metadata) or a bare positions
object (--positions). Malformed documents decode as empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readOptional(stepsPath)
			if err != nil {
				return err
			}
			metadata, err := readOptional(metadataPath)
			if err != nil {
				return err
			}
			positionsDoc, err := readOptional(positionsPath)
			if err != nil {
				return err
			}

			var g workflow.Graph
			if metadata != nil {
				g = workflow.DecodeStored(steps, metadata)
			} else {
				g = workflow.Decode(steps, positionsDoc)
			}

			p := out(cmd)
			if p.format == formatText {
				p.format = formatJSON
			}
			return p.print(g, nil)
		},
	}

	cmd.Flags().StringVar(&stepsPath, "steps", "", "step map JSON file")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "metadata JSON file holding positions")
	cmd.Flags().StringVar(&positionsPath, "positions", "", "positions JSON file")
	cmd.MarkFlagsMutuallyExclusive("metadata", "positions")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

func newWorkflowEncodeCmd(out printerFunc) *cobra.Command {
	var graphPath, stepsPath, metadataPath string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write an editor graph back into a step map",
		Long: `Encode merges an editor graph into the stored step map and metadata and
prints both documents. Fields the editor does not manage are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graphDoc, err := os.ReadFile(graphPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", graphPath, err)
			}
			var g workflow.Graph
			if err := json.Unmarshal(graphDoc, &g); err != nil {
				return fmt.Errorf("parse graph: %w", err)
			}
			if err := g.ValidateNodes(); err != nil {
				return err
			}

			storedSteps, err := readOptional(stepsPath)
			if err != nil {
				return err
			}
			storedMetadata, err := readOptional(metadataPath)
			if err != nil {
				return err
			}

			steps, metadata, err := workflow.EncodeJSON(g, storedSteps, storedMetadata)
			if err != nil {
				return err
			}

			doc := workflow.NewBag()
			doc.Set("steps", steps)
			doc.Set("metadata", metadata)

			p := out(cmd)
			if p.format == formatText {
				p.format = formatJSON
			}
			return p.print(doc, nil)
		},
	}

	cmd.Flags().StringVar(&graphPath, "graph", "", "editor graph JSON file")
	cmd.Flags().StringVar(&stepsPath, "steps", "", "stored step map JSON file")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "stored metadata JSON file")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

type checkReport struct {
	Valid    bool                          `json:"valid"`
	Error    string                        `json:"error,omitempty"`
	Steps    int                           `json:"steps"`
	Dangling []workflow.DanglingTransition `json:"dangling"`
}

func newWorkflowCheckCmd(out printerFunc) *cobra.Command {
	var stepsPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a step map and report dangling transitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(stepsPath)
			if err != nil {
				return fmt.Errorf("read %s: %w", stepsPath, err)
			}

			report := checkReport{Valid: true, Dangling: []workflow.DanglingTransition{}}
			if err := workflow.ValidateSteps(data); err != nil {
				report.Valid = false
				report.Error = err.Error()
			}
			steps := workflow.ParseSteps(data)
			report.Steps = steps.Len()
			report.Dangling = append(report.Dangling, workflow.DanglingTransitions(steps)...)

			err = out(cmd).print(report, func(w io.Writer) error {
				if report.Valid {
					fmt.Fprintf(w, "schema: ok (%d steps)\n", report.Steps)
				} else {
					fmt.Fprintf(w, "schema: %s\n", report.Error)
				}
				for _, d := range report.Dangling {
					fmt.Fprintf(w, "dangling: %s\n", d)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !report.Valid || len(report.Dangling) > 0 {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stepsPath, "steps", "", "step map JSON file")
	_ = cmd.MarkFlagRequired("steps")
	return cmd
}

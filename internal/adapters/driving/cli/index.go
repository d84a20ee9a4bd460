package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
)

var (
	indexBuildJSON  bool
	indexStatusJSON bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the embedding index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from the knowledge base",
	Long: `Loads every structured record and unstructured file from the knowledge
base, embeds them and persists the result. The new index replaces the old
one only after it has been saved.`,
	Args: cobra.NoArgs,
	RunE: runIndexBuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted index",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

func init() {
	indexBuildCmd.Flags().BoolVar(&indexBuildJSON, "json", false, "output the build report as JSON")
	indexStatusCmd.Flags().BoolVar(&indexStatusJSON, "json", false, "output status as JSON")
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

type skipJSON struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type buildReportJSON struct {
	State       string     `json:"state"`
	Structured  int        `json:"structured_documents"`
	Files       int        `json:"unstructured_files"`
	Chunks      int        `json:"chunks"`
	Indexed     int        `json:"indexed"`
	Placeholder bool       `json:"placeholder,omitempty"`
	Dimensions  int        `json:"dimensions"`
	Model       string     `json:"model"`
	Path        string     `json:"path"`
	DurationMS  int64      `json:"duration_ms"`
	Skipped     []skipJSON `json:"skipped"`
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	if retriever == nil {
		return errors.New("retrieval service not configured")
	}

	report, err := retriever.Rebuild(cmd.Context())
	if report != nil {
		if indexBuildJSON {
			if jsonErr := printJSON(cmd, toBuildReportJSON(report)); jsonErr != nil {
				return jsonErr
			}
		} else {
			printBuildReport(cmd, report)
		}
	}
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	return nil
}

func printBuildReport(cmd *cobra.Command, r *domain.BuildReport) {
	cmd.Printf("State: %s\n", r.State)
	cmd.Printf("  Structured documents: %d\n", r.StructuredDocuments)
	cmd.Printf("  Unstructured files:   %d (%d chunks)\n", r.UnstructuredFiles, r.Chunks)
	cmd.Printf("  Indexed:              %d\n", r.Indexed)
	if r.Model != "" {
		cmd.Printf("  Model:                %s (%d dimensions)\n", r.Model, r.Dimensions)
	}
	if r.Path != "" {
		cmd.Printf("  Path:                 %s\n", r.Path)
	}
	cmd.Printf("  Took:                 %s\n", r.Duration.Round(time.Millisecond))
	if r.Placeholder {
		cmd.Println("  No usable documents were found; a placeholder was indexed.")
	}
	if len(r.Skipped) > 0 {
		cmd.Printf("\nSkipped %d:\n", len(r.Skipped))
		for _, s := range r.Skipped {
			where := s.File
			if s.Line > 0 {
				where = fmt.Sprintf("%s:%d", s.File, s.Line)
			}
			if s.Detail != "" {
				cmd.Printf("  %s  %s (%s)\n", where, s.Reason, s.Detail)
			} else {
				cmd.Printf("  %s  %s\n", where, s.Reason)
			}
		}
	}
}

func toBuildReportJSON(r *domain.BuildReport) buildReportJSON {
	out := buildReportJSON{
		State:       r.State.String(),
		Structured:  r.StructuredDocuments,
		Files:       r.UnstructuredFiles,
		Chunks:      r.Chunks,
		Indexed:     r.Indexed,
		Placeholder: r.Placeholder,
		Dimensions:  r.Dimensions,
		Model:       r.Model,
		Path:        r.Path,
		DurationMS:  r.Duration.Milliseconds(),
		Skipped:     make([]skipJSON, len(r.Skipped)),
	}
	for i, s := range r.Skipped {
		out.Skipped[i] = skipJSON{File: s.File, Line: s.Line, Reason: string(s.Reason), Detail: s.Detail}
	}
	return out
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if retriever == nil {
		return errors.New("retrieval service not configured")
	}

	ctx := cmd.Context()
	if !retriever.Status(ctx).Loaded && openIndex != nil {
		if err := openIndex(ctx); err != nil && !errors.Is(err, domain.ErrNotFound) {
			cmd.PrintErrf("Warning: %v\n", err)
		}
	}
	st := retriever.Status(ctx)

	if indexStatusJSON {
		out := map[string]any{
			"loaded":     st.Loaded,
			"documents":  st.Documents,
			"dimensions": st.Dimensions,
			"model":      st.Model,
			"path":       st.Path,
			"stale":      st.Stale,
		}
		if !st.BuiltAt.IsZero() {
			out["built_at"] = st.BuiltAt.Format(time.RFC3339)
		}
		return printJSON(cmd, out)
	}

	if !st.Loaded {
		cmd.Printf("No index at %s\n", st.Path)
		cmd.Println("Run 'kairoscope index build' to create one.")
		return nil
	}
	cmd.Printf("Index: %s\n", st.Path)
	cmd.Printf("  Documents:  %d\n", st.Documents)
	cmd.Printf("  Model:      %s (%d dimensions)\n", st.Model, st.Dimensions)
	if !st.BuiltAt.IsZero() {
		cmd.Printf("  Built:      %s\n", st.BuiltAt.Local().Format(time.DateTime))
	}
	if st.Stale {
		cmd.Println("  Knowledge base changed since the last build.")
	}
	return nil
}

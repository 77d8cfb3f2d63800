package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/local/pagesampler/internal/store"
)

var errNoRedis = errors.New("REDIS_URL is not set")

func (a *app) statusCommand() *cobra.Command {
	var doc string
	cmd := &cobra.Command{
		Use:          "status <run_id>",
		Short:        "Print the status a run published to Redis",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Redis.URL == "" {
				return errNoRedis
			}
			rs, err := store.NewRedisStatus(a.cfg.Redis.URL, a.cfg.Redis.StatusTTL)
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx, runID := cmd.Context(), args[0]
			if doc != "" {
				fields, err := rs.GetDocument(ctx, runID, doc)
				if err != nil {
					return err
				}
				if fields == nil {
					return fmt.Errorf("no document %q recorded for run %s", doc, runID)
				}
				return writeJSON(cmd.OutOrStdout(), fields)
			}

			st, found, err := rs.Get(ctx, runID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no status recorded for run %s", runID)
			}
			return writeJSON(cmd.OutOrStdout(), statusView(st))
		},
	}
	cmd.Flags().StringVar(&doc, "doc", "", "show one document's record instead of the run")
	return cmd
}

type runView struct {
	State     string     `json:"state"`
	Message   string     `json:"message,omitempty"`
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
	Total     int        `json:"total"`
	Processed int        `json:"processed"`
	Partial   int        `json:"partial"`
	Failed    int        `json:"failed"`
	Images    int        `json:"images"`
}

func statusView(st store.RunStatus) runView {
	return runView{
		State:     st.State,
		Message:   st.Message,
		Start:     st.Start,
		End:       st.End,
		Total:     st.Stats.Discovered,
		Processed: st.Stats.Processed,
		Partial:   st.Stats.Partial,
		Failed:    st.Stats.Failed,
		Images:    st.Stats.Images,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

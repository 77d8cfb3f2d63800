package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/local/pagesampler/internal/filetype"
	"github.com/local/pagesampler/internal/pdfdoc"
)

func (a *app) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "inspect <input_folder>",
		Short:        "List page counts as seen by MuPDF and pdfcpu, flagging mismatches",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := filepath.Glob(filepath.Join(args[0], a.cfg.Sampler.Filter))
			if err != nil {
				return err
			}
			sort.Strings(matches)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOCUMENT\tMUPDF\tPDFCPU\tWIDTH\tHEIGHT\tNOTE")
			mismatches := 0
			for _, m := range matches {
				if !filetype.HasPDFExtension(m) {
					continue
				}
				name := filepath.Base(m)
				geo, probeErr := pdfdoc.Probe(nil, m)
				count, countErr := pdfdoc.CountPages(m)

				note := ""
				switch {
				case probeErr != nil:
					note = "unreadable: " + probeErr.Error()
				case countErr != nil:
					note = "pdfcpu: " + countErr.Error()
				case geo.Pages != count:
					note = "page count mismatch"
					mismatches++
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\t%.0f\t%s\n", name, geo.Pages, count, geo.Width, geo.Height, note)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if mismatches > 0 {
				a.log.Warn().Int("mismatches", mismatches).Msg("page counts disagree")
			}
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/pagesampler/internal/statuscheck"
	"github.com/local/pagesampler/internal/store"
)

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "check [output_folder]",
		Short:        "Report whether the renderer, output and optional Redis are usable",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := statuscheck.Options{}
			if len(args) == 1 {
				out, err := a.openStore(ctx, args[0])
				if err != nil {
					return err
				}
				opts.Output = out
			}
			if a.cfg.Redis.URL != "" {
				if rs, err := store.NewRedisStatus(a.cfg.Redis.URL, a.cfg.Redis.StatusTTL); err == nil {
					defer rs.Close()
					opts.Redis = rs
				} else {
					a.log.Warn().Err(err).Msg("redis unreachable")
				}
			}

			summary := statuscheck.New(opts).Summary(ctx)
			b, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(b))
			return summary.Ready()
		},
	}
}

package main

import (
	"github.com/spf13/cobra"

	jobhandler "gonogo/internal/jobs/handler"
	jobspostgres "gonogo/internal/jobs/store/postgres"
	"gonogo/pkg/domain"
)

func newJobCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect bulk jobs in the service database",
	}

	var withItems bool
	show := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Print a job's status and counts, optionally with per-item results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseJobID(args[0])
			if err != nil {
				return err
			}
			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := jobspostgres.New(db).Snapshot(cmd.Context(), id)
			if err != nil {
				return err
			}
			if withItems {
				return e.printJSON(jobhandler.NewResultsResponse(snap))
			}
			return e.printJSON(jobhandler.NewJobResponse(snap))
		},
	}
	show.Flags().BoolVar(&withItems, "items", false, "include per-item inputs and results")

	cmd.AddCommand(show)
	return cmd
}

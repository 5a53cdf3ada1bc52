package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewSchedulerCmd создаёт группу команд для наблюдения за планировщиком.
func NewSchedulerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect the post scheduler",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scheduler state",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := clientFn().SchedulerStatus()
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"RUNNING", "SCHEDULED_POSTS"},
				[][]string{{strconv.FormatBool(status.Running), strconv.Itoa(status.ScheduledPosts)}},
				status,
			)
			return nil
		},
	})

	return cmd
}

// NewStatsCmd создаёт команду статистики постов.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show post counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := clientFn().Stats()
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"TOTAL", "DRAFT", "SCHEDULED", "PUBLISHED"},
				[][]string{{
					strconv.Itoa(stats.TotalPosts), strconv.Itoa(stats.DraftPosts),
					strconv.Itoa(stats.ScheduledPosts), strconv.Itoa(stats.PublishedPosts),
				}},
				stats,
			)
			return nil
		},
	}
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewPostCmd создаёт группу команд для управления постами.
func NewPostCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage posts",
	}

	cmd.AddCommand(
		newPostListCmd(clientFn, outputFn),
		newPostCreateCmd(clientFn, outputFn),
		newPostShowCmd(clientFn, outputFn),
		newPostUpdateCmd(clientFn, outputFn),
		newPostDeleteCmd(clientFn, outputFn),
		newPostScheduleCmd(clientFn, outputFn),
		newPostCancelCmd(clientFn, outputFn),
		newPostPublishCmd(clientFn, outputFn),
	)

	return cmd
}

var postHeaders = []string{"ID", "AUTHOR_ID", "TITLE", "STATUS", "SCHEDULED_AT", "PUBLISHED_AT"}

func postRow(p PostResponse) []string {
	return []string{p.ID, p.AuthorID, p.Title, p.Status, p.ScheduledAt, p.PublishedAt}
}

func printPost(out *Output, p *PostResponse) {
	out.Print(postHeaders, [][]string{postRow(*p)}, p)
}

func newPostListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListPostsOpts
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var err error
			if opts.StartDate, err = parseDateFlag("start-date", startDate); err != nil {
				return err
			}
			if opts.EndDate, err = parseDateFlag("end-date", endDate); err != nil {
				return err
			}

			posts, err := client.ListPosts(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(posts))
			for i, p := range posts {
				rows[i] = postRow(p)
			}

			out.Print(postHeaders, rows, posts)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.AuthorID, "author-id", "", "Filter by author ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (DRAFT, SCHEDULED, PUBLISHED)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "Created at or after RFC3339 time")
	cmd.Flags().StringVar(&endDate, "end-date", "", "Created at or before RFC3339 time")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newPostCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var req CreatePostRequest
	var at string
	var in time.Duration

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if cmd.Flags().Changed("at") || cmd.Flags().Changed("in") {
				t, err := resolveTime(at, in, time.Now())
				if err != nil {
					return err
				}
				req.ScheduledAt = &t
			}

			post, err := client.CreatePost(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post created: %s", post.ID))
			printPost(out, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.AuthorID, "author-id", "", "Author ID (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Post title (required)")
	cmd.Flags().StringVar(&req.Content, "content", "", "Post content")
	cmd.Flags().StringVar(&at, "at", "", "Schedule at RFC3339 time (e.g. 2026-01-02T15:04:00Z)")
	cmd.Flags().DurationVar(&in, "in", 0, "Schedule after duration (e.g. 30m)")
	cmd.MarkFlagRequired("author-id")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagsMutuallyExclusive("at", "in")

	return cmd
}

func newPostShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show post details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.GetPost(args[0])
			if err != nil {
				return err
			}

			out.Record([][2]string{
				{"ID", post.ID},
				{"Author", post.AuthorID},
				{"Title", post.Title},
				{"Status", post.Status},
				{"Scheduled at", post.ScheduledAt},
				{"Published at", post.PublishedAt},
				{"Created at", post.CreatedAt},
				{"Updated at", post.UpdatedAt},
				{"Content", post.Content},
			}, post)
			return nil
		},
	}
}

func newPostUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update post title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdatePostRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("content") {
				req.Content = &content
			}
			if req.Title == nil && req.Content == nil {
				return errors.New("nothing to update: set --title or --content")
			}

			post, err := client.UpdatePost(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Post updated")
			printPost(out, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")

	return cmd
}

func newPostDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeletePost(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post deleted: %s", args[0]))
			return nil
		},
	}
}

func newPostScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var at string
	var in time.Duration

	cmd := &cobra.Command{
		Use:   "schedule ID",
		Short: "Schedule a draft post for publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			t, err := resolveTime(at, in, time.Now())
			if err != nil {
				return err
			}

			post, err := client.SchedulePost(args[0], t)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post scheduled for %s", post.ScheduledAt))
			printPost(out, post)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Publish at RFC3339 time")
	cmd.Flags().DurationVar(&in, "in", 0, "Publish after duration (e.g. 1h30m)")
	cmd.MarkFlagsOneRequired("at", "in")
	cmd.MarkFlagsMutuallyExclusive("at", "in")

	return cmd
}

func newPostCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Return a scheduled post to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.CancelPost(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post unscheduled: %s", post.ID))
			printPost(out, post)
			return nil
		},
	}
}

func newPostPublishCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "publish ID",
		Short: "Publish a scheduled post now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			post, err := client.PublishPost(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Post published: %s", post.ID))
			printPost(out, post)
			return nil
		},
	}
}

// parseDateFlag разбирает необязательный RFC3339-флаг.
func parseDateFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q, expected RFC3339: %w", name, v, err)
	}
	return &t, nil
}

// resolveTime возвращает момент публикации из --at (RFC3339) или --in (от now).
func resolveTime(at string, in time.Duration, now time.Time) (time.Time, error) {
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at %q, expected RFC3339: %w", at, err)
		}
		return t, nil
	}
	if in <= 0 {
		return time.Time{}, errors.New("--in must be positive")
	}
	return now.Add(in).UTC(), nil
}

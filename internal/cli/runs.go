package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// ListRuns prints the journaled run IDs.
func ListRuns(ctx context.Context, s *Stack, w io.Writer) error {
	ids, err := s.Sessions.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// ShowRun prints the outcome records of one run in order.
func ShowRun(ctx context.Context, s *Stack, runID string, w io.Writer) error {
	recs, err := s.Sessions.Load(ctx, runID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tNODE\tOUTCOME\tINTERRUPTED\tAT")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", r.Seq, r.NodeName, r.Outcome, r.Interrupted, r.At.Format(time.RFC3339))
	}
	return tw.Flush()
}

// DeleteRun removes a run from the journal.
func DeleteRun(ctx context.Context, s *Stack, runID string, w io.Writer) error {
	if err := s.Sessions.Delete(ctx, runID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Run '%s' deleted.\n", runID)
	return nil
}

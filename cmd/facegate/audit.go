package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the access decision audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print audit entries as JSON lines, optionally following new ones",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditTailCmd)

	auditTailCmd.Flags().Int64("after", 0, "Only entries with seq greater than this")
	auditTailCmd.Flags().Int("limit", store.DefaultAuditLimit, "Entries per page")
	auditTailCmd.Flags().String("identity", "", "Only entries that matched this identity id")
	auditTailCmd.Flags().BoolP("follow", "f", false, "Keep polling for new entries")
	auditTailCmd.Flags().Duration("interval", 2*time.Second, "Poll interval with --follow")
}

func runAuditTail(cmd *cobra.Command, _ []string) error {
	q := store.AuditQuery{
		AfterSeq: mustGetInt64(cmd, "after"),
		Limit:    mustGetInt(cmd, "limit"),
	}
	if s := mustGetString(cmd, "identity"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid identity id: %w", err)
		}
		q.IdentityID = uuid.NullUUID{UUID: id, Valid: true}
	}
	follow := mustGetBool(cmd, "follow")
	interval := mustGetDuration(cmd, "interval")

	ctx := cmd.Context()
	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	enc := json.NewEncoder(os.Stdout)
	for {
		n, err := drainAudit(ctx, st.audit, &q, enc)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if !follow {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// drainAudit prints one page and advances q past it.
func drainAudit(ctx context.Context, a store.AuditStore, q *store.AuditQuery, enc *json.Encoder) (int, error) {
	entries, err := a.ListDecisions(ctx, *q)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return 0, err
		}
		q.AfterSeq = e.Seq
	}
	return len(entries), nil
}

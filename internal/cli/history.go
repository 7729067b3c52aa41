package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/pkg/audit"
	errs "github.com/matzehuels/libresolve/pkg/errors"
)

// historyCommand creates the history command, which reads the provenance
// ledger.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <groupId:artifactId>",
		Short: "Show past resolutions of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group, art, ok := strings.Cut(args[0], ":")
			if !ok || group == "" || art == "" || strings.Contains(art, ":") {
				return errs.New(errs.ErrCodeInvalidInput, "expected groupId:artifactId, got %q", args[0])
			}

			store := c.openAudit(cmd.Context())
			defer store.Close()

			records, err := store.History(cmd.Context(), group, art, limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(records) == 0 {
				printInfo("No resolutions recorded for %s", args[0])
				return nil
			}
			return writeHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", audit.DefaultHistoryLimit, "maximum number of records")
	return cmd
}

func writeHistory(w io.Writer, records []audit.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range records {
		status := fmt.Sprintf("%d artifacts (%d downloaded)", r.Artifacts, r.Downloaded)
		if !r.OK() {
			status = r.ErrorCode
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.Version,
			status,
			r.Fingerprint,
			time.Duration(r.Duration)*time.Millisecond,
		)
	}
	return tw.Flush()
}

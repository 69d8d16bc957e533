package ledger

import (
	"context"
	"io"
)

type LedgerService interface {
	// GetReconciledLedger fails with ErrUnresolvedDisputes while disputes in the run period are pending.
	GetReconciledLedger(ctx context.Context, runID string) (LedgerResponse, error)

	// Export writes the ledger in the given format and returns the suggested filename.
	Export(ctx context.Context, runID string, format Format, w io.Writer) (string, error)
}

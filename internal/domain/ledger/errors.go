package ledger

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
)

var (
	ErrUnresolvedDisputes = fmt.Errorf("%w: attendance disputes for this period are still pending", approval.ErrInvalidState)
	ErrStaleRun           = fmt.Errorf("%w: attendance changed after the run was generated", approval.ErrInvalidState)
	ErrMissingBankDetails = errors.New("salary structure with bank details is missing")
	ErrUnsupportedFormat  = errors.New("format must be csv or xlsx")
)

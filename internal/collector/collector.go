package collector

import (
	"context"
	"iter"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

// Source enumerates the repositories owned by an account.
type Source interface {
	// ListRepositories returns a lazy, single-pass sequence of the account's
	// repositories. Ranging over the sequence again fetches from the first
	// page. A listing failure is yielded once as a non-nil error, after which
	// the sequence ends.
	ListRepositories(ctx context.Context, account string) iter.Seq2[*domain.Repository, error]
}

// Package fetch runs a per-item enrichment operation over an ordered list
// with bounded parallelism and independent per-item retries.
//
// A catalog search returns a candidate list; every candidate then needs one
// extra upstream call for its artwork, stream location and lyrics. This
// package schedules those calls:
//
//	fetcher, err := fetch.New(enrichOne, fallbackFor, fetch.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	outcomes, err := fetcher.Run(ctx, candidates)
//
// The fetcher:
//   - Holds at most ConcurrencyLimit items in flight, admitted left to right
//   - Retries a failed item immediately, up to RetryLimit attempts in total
//   - Keeps the slot for an item until its whole retry sequence is done
//   - Replaces an exhausted item with a deterministic fallback value
//   - Returns exactly one Outcome per input item, in input order
//
// Per-item failures never fail the batch. Run only returns an error when the
// caller's context is cancelled, and even then the outcome list is complete.
package fetch

// Package scan builds per-sender reports of a mailbox's bulk mail and finds
// unsubscribe links for a sender.
//
// A scan runs a set of category queries, merges the listed message IDs,
// fetches the metadata of a bounded number of them through a rate-limited
// Scheduler and folds the results into an Aggregator:
//
//	scanner, err := scan.NewScanner(scan.DefaultConfig(), logger, metrics)
//	if err != nil {
//		return err
//	}
//	report, err := scanner.Scan(ctx, client, account)
//
// Individual fetch failures are skipped and counted in the report. An
// authentication error, a failed list call or a canceled context ends the
// scan with an error.
//
// The scheduler has two modes. RateModeFixed pauses between concurrency
// groups and batches. RateModeAdaptive paces requests with a token bucket
// whose rate is halved whenever a group hits a quota error.
package scan

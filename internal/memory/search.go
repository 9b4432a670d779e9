package memory

import (
	"context"
	"sort"

	"dejavu/internal/logging"
	"dejavu/internal/plan"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the similarity score at or above which a remembered
// plan counts as a near-duplicate.
const DefaultThreshold = 0.85

// Match pairs a remembered rejection with its similarity to a candidate.
type Match struct {
	Record RejectedPlan
	Score  float64
}

// FindSimilar returns the records whose stored fingerprint scores at or
// above threshold against the candidate, sorted by score descending with
// ties in input order. Records with a missing or malformed stored
// fingerprint are skipped (and logged). A threshold <= 0 falls back to
// DefaultThreshold. A malformed candidate fails with
// plan.ErrInvalidFingerprintFormat.
//
// The traversal is read-only; the records slice is never modified.
func FindSimilar(candidate plan.Fingerprint, records []RejectedPlan, threshold float64) ([]Match, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "FindSimilar")
	defer timer.Stop()

	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	threshold = normalizeThreshold(threshold)

	matches := scanRecords(candidate, records, threshold)
	sortMatches(matches)

	logging.MemoryDebug("FindSimilar: %d of %d record(s) at or above %.2f",
		len(matches), len(records), threshold)
	return matches, nil
}

// FindSimilarParallel is FindSimilar over a sharded scan, for large
// collections. Shards cover contiguous ranges and are merged in shard
// order before the stable sort, so results are identical to the
// sequential scan, including tie order.
func FindSimilarParallel(ctx context.Context, candidate plan.Fingerprint, records []RejectedPlan, threshold float64, shards int) ([]Match, error) {
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	threshold = normalizeThreshold(threshold)

	if shards <= 1 || len(records) <= shards {
		matches := scanRecords(candidate, records, threshold)
		sortMatches(matches)
		return matches, nil
	}

	timer := logging.StartTimer(logging.CategoryMemory, "FindSimilarParallel")
	defer timer.Stop()

	chunk := (len(records) + shards - 1) / shards
	parts := make([][]Match, shards)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		start := i * chunk
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		if start >= end {
			break
		}
		shard := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			parts[shard] = scanRecords(candidate, records[start:end], threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]Match, 0)
	for _, part := range parts {
		merged = append(merged, part...)
	}
	sortMatches(merged)

	logging.MemoryDebug("FindSimilarParallel: %d of %d record(s) at or above %.2f (shards=%d)",
		len(merged), len(records), threshold, shards)
	return merged, nil
}

// scanRecords collects unsorted matches. The candidate must already be
// validated and the threshold normalized.
func scanRecords(candidate plan.Fingerprint, records []RejectedPlan, threshold float64) []Match {
	matches := make([]Match, 0)
	skipped := 0

	for _, rec := range records {
		if rec.Fingerprint == "" {
			skipped++
			logging.MemoryDebug("Skipping record %s: no stored fingerprint", rec.ID)
			continue
		}
		score, err := plan.Similarity(candidate, rec.Fingerprint)
		if err != nil {
			skipped++
			logging.MemoryWarn("Skipping record %s: malformed stored fingerprint: %v", rec.ID, err)
			continue
		}
		if score >= threshold {
			matches = append(matches, Match{Record: rec, Score: score})
		}
	}

	if skipped > 0 {
		logging.MemoryDebug("Scan skipped %d of %d record(s)", skipped, len(records))
	}
	return matches
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

func normalizeThreshold(threshold float64) float64 {
	if threshold <= 0 {
		return DefaultThreshold
	}
	return threshold
}

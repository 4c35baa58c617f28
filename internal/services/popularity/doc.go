// Package popularity keeps a per-guild popularity score for every emote.
//
// # Scores
//
// A score is one signed byte in [-128, 127] and is reported to callers as
// score+128. It is an approximate counter: a usage moves it up by one with a
// probability that halves every 32 points (see Bucket and Odds), so a byte is
// enough to rank emotes used millions of times.
//
// Scores at or below -28 are cold. Decay lowers every warm guild-owned score
// by one per tick and never touches cold ones, so an unused emote settles at
// -28 instead of sinking to the floor.
//
// # Ingestion
//
// Usage events travel through a redis list:
//
//	POST /api/v1/popularity/usage -> UsageQueue.Push
//	Flusher (every POPULARITY_FLUSH_INTERVAL) -> UsageQueue.Drain -> Counter.BumpBatch
//
// Bump is a compare-and-set on the row. A bump that loses a race re-reads the
// score and draws again, and after a few lost races the usage is dropped.
//
// # Decay
//
// DecayScheduler calls Counter.DecayAll once per POPULARITY_DECAY_INTERVAL.
// Each tick is claimed with a redis lock named after the tick, so only one
// process decays it. A failed pass releases the lock and may be retried.
//
// # Metrics
//
//   - emote_usages_flushed_total
//   - emote_usage_flush_failures_total
//   - emote_decay_runs_total{result="ok|skipped|error"}
//   - emote_decayed_rows_total
package popularity

// Package providers implements the quote provider adapters.
// Each adapter wraps one external quote API and translates its response
// shape into domain Quotes, protecting the aggregation core from upstream
// changes. Tag enrichment, batch de-duplication, and exclusion filtering
// happen here so callers always receive ready-to-merge quotes.
//
// Error policy differs per provider on purpose:
//   - movie and philosophy adapters map transport failures to domain errors
//     and propagate them
//   - the anime adapter swallows transport failures and returns an empty
//     slice, treating "no results" and "fetch failed" the same
package providers

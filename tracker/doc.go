// Package tracker correlates the live position feed with the per-train
// schedule feed into a single queryable train table.
//
// The Tracker owns the station registry and the train table. A poll
// cycle fetches the feeds, purges trains from earlier service days,
// completes trains that left the live feed, merges live records and
// rebuilds routes from the schedule feed. Consumers read the table
// through FindTrains, the per-station views and the next-stop
// derivation; they never mutate it.
package tracker

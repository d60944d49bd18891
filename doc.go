// Package keihantracker exposes the train tracker over HTTP: train
// queries, station views and per-train detail backed by the tracker
// package, with an optional history endpoint backed by the snapshot
// store.
package keihantracker

// Package feed fetches and decodes the four JSON endpoints the Keihan
// website publishes: the per-line station list, the transfer guide, the
// live train position list and the per-train schedule list.
//
// Types here stay close to the raw payloads; interpretation of the
// records (coordinate decoding, route building, lifecycle) lives in the
// tracker package.
package feed

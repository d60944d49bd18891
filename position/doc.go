// Package position decodes the grid coordinates used by the Keihan train
// location feed into lines and stations.
//
// The live feed does not name stations directly: each train carries a
// (column, row) coordinate on the operator's diagram. The row selects the
// line and, within a line, maps to a station (stopped) or to a pair of
// stations (moving between them). The mapping is a fixed property of the
// diagram and is reproduced here as literal range arithmetic.
package position

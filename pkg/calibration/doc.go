// Package calibration holds the pulse/value mapping used to drive servos. It
// contains:
//
//   - Point: one (pulse, value) anchor, pulse in microseconds
//   - Table: an ordered list of points plus the out-of-range limit policy
//   - Converter: the piecewise-linear conversions built on top of a Table
//   - Type: the servo kinds that select a default Table
//
// These types are shared across the servo controller, the daemon and the
// client so the JSON shape of a calibration stays the same everywhere.
package calibration

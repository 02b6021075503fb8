// Package internaldefs holds the metric names and bucket bounds shared by the exporters.
//
// The Prometheus and OTel exporters read the same definitions, so a rename here changes
// both at once. This package performs no I/O.
package internaldefs

// Package analysis computes descriptive per-year statistics over stored
// records with gonum.
package analysis

// Package catalog holds the immutable category and variable snapshot a
// monitoring session works from.
package catalog

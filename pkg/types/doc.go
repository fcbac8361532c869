// Package types defines the storage interface, card configuration types,
// and standard errors shared by the yinkun service and its CLI.
package types

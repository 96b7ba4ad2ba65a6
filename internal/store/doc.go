// Package store defines the tabular row source the batch runner reads URLs
// from and writes categories back to. Implementations live in subpackages
// (sheets, csvfile, postgres); this package must not import drivers or
// concrete clients.
package store

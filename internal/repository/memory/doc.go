// Package memory holds process-local implementations of the repository
// interfaces. They back the "memory" database driver for local runs and the
// service and API tests. Values are copied in and out so callers never share
// state with the store.
package memory

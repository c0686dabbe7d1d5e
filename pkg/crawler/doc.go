// Package crawler walks the selector region tree and writes it to a store.
//
// A run clears the destination tables, then visits nodes depth-first in
// pre-order using an explicit stack, so deep trees never grow the call
// stack. For each node the crawler:
//
//  1. fetches the region with the get query
//  2. persists it with its parent link taken from parents[0]
//  3. fetches and persists metro stations when the region offers them
//  4. fetches and persists sub-localities when the region offers them
//  5. schedules the children listed in subtree, in service order
//
// The first error aborts the run. It is returned wrapped in a NodeError
// that names the rgid and the failing step; errors.Phase reports whether
// the failure happened while fetching, persisting or reading the tree.
package crawler

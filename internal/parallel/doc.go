// Package parallel runs the tile work of a frame render on a fixed set of
// goroutines.
//
// A canvas is split into square tiles with SplitTiles, one Task per tile is
// handed to a WorkerPool, and Run waits for all of them. Workers with an
// empty queue steal from their neighbours, so slow tiles do not hold up
// the rest.
package parallel

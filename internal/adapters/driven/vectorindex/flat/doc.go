// Package flat provides an exact, in-memory nearest-neighbour index.
// It implements the driven.VectorIndex interface.
//
// Every query scans all vectors, which keeps results exact and ordering
// deterministic. Knowledge bases here hold thousands of documents, not
// millions, so a linear scan stays within a few milliseconds.
package flat

// Package memory provides in-memory implementations of driven ports for tests.
package memory

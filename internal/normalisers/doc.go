// Package normalisers turns unstructured knowledge base files into plain
// text. Each normaliser handles a set of file extensions; the Registry
// picks one by extension when the loader reads the unstructured folder.
package normalisers

// Package filesystem loads the knowledge base from a local directory.
//
// The knowledge base root holds two subdirectories:
//
//	structured/*.jsonl    one JSON object per line with a required "text" field
//	unstructured/*        one free text document per file, chunked at build time
//
// Unstructured files are read when a normaliser handles their extension:
// plain text, Markdown and HTML by default. Either directory may be
// missing. The loader never writes.
package filesystem

// Package ldd runs the dynamic-linker dependency probe against a single file.
package ldd

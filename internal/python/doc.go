// Package python detects packages whose files live in library directories of a
// Python version other than the installed interpreter, for example files left
// in /usr/lib/python3.8 after the interpreter moved to 3.9.
package python

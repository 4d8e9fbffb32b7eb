// Package flagutil provides additional support around the flag package. StringValue accumulates
// one value per flag occurrence, for commands like `find`'s repeatable --files/--judges flags:
//
// $command --files a.txt --files b.txt
//
// CSVValue additionally splits each occurrence on commas, for flags like --types/--levels/
// --countries that accept either repetition or a single comma-separated list:
//
// $command --types HTTP,SOCKS5 --types HTTPS
//
// Usage is as documented in the flag package:
//
//		var ms flagutil.StringValue
//	     flagSet.Var(&ms, "someopt", "Short description of opt")
//	     args := ms.Args() // Return an array of strings
//
// or
//
//	flag.Var(&ms, "someopt", "Short description of opt")
//	args := ms.Args() // Return an array of strings
package flagutil

import (
	"strings"
)

// StringValue is the type provided to flag.Var()
type StringValue struct {
	strings []string
}

// Set appends a string to the internal array - it is called by the flag package for each occurrence
// of the corresponding option on the command line. Part of the flag.Value interface.
func (t *StringValue) Set(s string) error {
	t.strings = append(t.strings, s)

	return nil
}

// String returns a space separated string of all the arguments provided by Set. Part of the
// flag.Value interface.
func (t *StringValue) String() string {
	return strings.Join(t.strings, " ")
}

// Args returns a copy of the array of strings returned by Set. You can safely modify this
// array without fear of changing the internal data.
func (t *StringValue) Args() []string {
	return append([]string{}, t.strings...)
}

// NArg returns the number of strings created by Set
func (t *StringValue) NArg() int {
	return len(t.strings)
}

// CSVValue is a flag.Value that splits each occurrence on commas and flattens the result into a
// single accumulated list, trimming whitespace around each element. Empty elements are dropped so
// that a trailing comma or repeated flag doesn't produce spurious empty strings.
type CSVValue struct {
	strings []string
}

// Set implements flag.Value.
func (t *CSVValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) > 0 {
			t.strings = append(t.strings, part)
		}
	}

	return nil
}

// String implements flag.Value.
func (t *CSVValue) String() string {
	return strings.Join(t.strings, ",")
}

// Args returns a copy of the accumulated, flattened list.
func (t *CSVValue) Args() []string {
	return append([]string{}, t.strings...)
}

// NArg returns the number of accumulated elements.
func (t *CSVValue) NArg() int {
	return len(t.strings)
}

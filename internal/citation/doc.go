// Package citation rewrites inline parenthetical citations into structured
// markup and matches source names against answer text.
//
// A citation group is a parenthesised list of clauses drawn from a closed
// set of valid source names:
//
//	group  := "(" clause ( sep clause )* ")"
//	clause := NAME " pages " INT "-" INT [ " " QUOTE ( sep QUOTE )* ]
//	sep    := ( "," | ";" ) " "
//	QUOTE  := "quote" INT
//
// Each group is rendered as
//
//	<cite><doc>NAME pages S-E<quote>quoteN</quote></doc></cite>
//
// Text that does not match the grammar exactly is left untouched.
package citation

// Package nlu implements the slot pattern matcher used by conversational nodes.
//
// A pattern is literal text with @slot placeholders:
//
//	"i want a @size @product"
//
// Compile turns each pattern into a regular expression whose placeholders are named
// alternations of the slot values already known for the turn. Match runs the patterns
// longest first and removes every matched span from the working text, so a shorter
// pattern never claims words a more specific one already used.
package nlu

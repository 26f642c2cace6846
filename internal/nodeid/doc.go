/*
Package nodeid provides a structured representation for node and attribute
addresses in a suite tree, based on the canonical ecFlow path format.

The format is a slash-separated sequence of segments with an optional
attribute suffix:

	/suite/family/task
	../family/task:EVENT
	task:VAR

A leading slash makes the address absolute. The relative segments `.` and
`..` are allowed so that rendered relative paths can be parsed back.
*/
package nodeid

/*
Package defs is the engine-native definition model: suites, families and
tasks carrying fully resolved attributes, ready to be printed as the
ecFlow definition text.

Nothing in this package knows about expressions or deferred values. The
flow package resolves everything and hands over plain strings and numbers,
together with the absolute references each trigger depends on so that
Check can verify them.
*/
package defs

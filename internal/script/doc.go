// Package script assembles the body of task job scripts.
//
// A Script produces a stub: the list of shell lines that form the task's
// own work. Lines composes literal strings and nested scripts, File reads
// a script from disk at generation time, Template renders a text/template
// over another script and Python wraps its body in an interpreter
// here-document. Header values describe the `%include <x.h>` files that
// surround a job and know how to install themselves through an Installer.
package script

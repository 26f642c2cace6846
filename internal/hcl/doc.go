// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for all file parsing, HCL-to-model
// translation, CTY-to-Go value conversion and the translation of native
// HCL trigger expressions into flow expressions.
package hcl

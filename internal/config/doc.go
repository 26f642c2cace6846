// Package config defines the format-agnostic suite model loaded from suite
// files, along with the Loader interface the file formats implement.
//
// The `config.Model` is the single input of the `builder` package, which
// turns it into a flow tree. Concrete loaders, such as the HCL and YAML
// ones, live in separate packages.
package config

// Package config loads the JSON session configuration and turns it into
// pipeline options.
package config

// Package config holds the run configuration of sitemirror and the per-site
// settings read from the .sitemirror YAML file.
package config

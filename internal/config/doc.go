// Package config provides configuration structures and utilities for opendir.
// It defines crawl limits, storage location, HTTP server settings and the
// optional YAML file that carries per-host request headers and limits.
package config

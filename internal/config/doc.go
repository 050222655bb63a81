// Package config provides configuration structures and utilities for webindex.
// It defines crawl limits, politeness settings, artifact locations and the
// optional per-site YAML configuration file.
package config

// Package config provides raw configuration sources for core.LoadConfig:
// YAML and CUE files and the process environment.
package config

// Package config provides configuration loading for the semindex tools.
// Configuration is YAML on disk; a missing file yields the defaults, and
// loaded values are validated and back-filled before use.
package config

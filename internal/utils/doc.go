// Package utils holds the CLI plumbing shared by every command: the layered
// Viper configuration loader, the zap logger factory, and home directory
// expansion for configuration paths.
package utils

// Package config loads the daemon configuration.
//
// Values start from Default, are replaced by a YAML file when one is given,
// and are finally overridden by BEAK_* environment variables. Environment
// values that do not parse or fall out of range are logged and ignored.
package config

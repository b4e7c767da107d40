// Package config holds the mirroring middleware configuration.
//
// Every setting can be given explicitly (Go struct or YAML file), through a
// FRKR_* environment variable, or left to a built-in default, in that order
// of precedence:
//
//	cfg, err := config.LoadConfig("mirror.yaml")
//	if err != nil {
//	    return err
//	}
//	cfg.ApplyEnv()
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// YAML files may reference environment variables with ${VAR} and
// ${VAR:-default}. Route patterns are written as a YAML mapping and keep
// their file order, which decides precedence between overlapping prefixes:
//
//	routes:
//	  /api/v1/*: v1-stream
//	  /api/*: api-stream
//	  "*": default
package config

// Package config provides unified configuration management for the colgen
// branch-and-price solver.
//
// All tunables of a solve live in a single SolveConfig structure with
// structured sections, loaded from YAML with environment variable
// substitution.
//
// # Key Features
//
// - SolveConfig: single configuration structure for a whole solve
// - Structured sections: Pricing, Search, Observability, Trace
// - Environment variable substitution with ${VAR_NAME} syntax
// - Automatic defaults and validation
//
// # Usage
//
// ## Basic Configuration Loading
//
//	cfg := config.NewSolveConfig("cutting-stock")
//	err := config.Load("solve.yaml", cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// ## Environment Variable Substitution
//
//	# solve.yaml
//	name: cutting-stock
//	instance: ${INSTANCE_PATH}
//	pricing:
//	  efficacy_mode: steepest-edge
//	  max_cols: 50
//	trace:
//	  enabled: true
//	  path: ${TRACE_DIR}/rounds.jsonl.zst
//
// Defaults come from NewSolveConfig; Load only overrides the fields the
// file names. Validation is the caller's responsibility after loading.
package config

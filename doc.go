// FILE: lixenwraith/strata/doc.go

// Package strata resolves layered configuration for Go applications.
//
// A resolution starts from definitions, an ordered tree of named, typed
// options with defaults and doc strings. Definitions come from namespaces
// built in code, structs with tags, mappings, JSON text, definition files and
// registered modules. Value sources are then overlaid in order, later sources
// overriding earlier ones: mappings, the environment, configuration files in
// conf, ini, json, yaml, toml, py and env syntax, and command-line arguments.
//
// Features:
//   - Ordered definition and value trees addressed by dotted paths
//   - String converters per option kind (int, float, bool, timestamp, date,
//     duration, reference, pattern, list) with round-trip writers
//   - Expansion: an option whose value is a registered class or module
//     installs that class's required configuration next to it
//   - Aliased options through reference paths sharing one value
//   - Aggregations computed from the resolved tree
//   - Strict or lenient handling of keys that match no option
//   - Admin options (admin.conf, admin.print_conf, admin.dump_conf,
//     admin.strict, admin.expose_secrets, admin.application)
//   - Source tracking to see where values originated
//   - Decoding into structs with validation
//
// Quick Start:
//
//	defs := strata.NewNamespace("")
//	defs.Add("server.host", "localhost", "listen address")
//	defs.Add("server.port", 8080, "listen port").Short = "p"
//
//	cfg, err := strata.Quick(defs, os.Args[1:])
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	host, _ := cfg.String("server.host")
//	port, _ := cfg.Int64("server.port")
//
// Precedence follows the order of value sources; Quick reads the environment
// (SERVER__PORT=9090) and then the command line (--server.port=9090 or -p 9090).
//
// Custom Precedence:
//
//	cfg, err := strata.NewBuilder().
//	    WithDefinitions(defs, "schema.json").
//	    WithOptionalFile("/etc/myapp/myapp.ini").
//	    WithEnv().
//	    WithOSArgs().
//	    WithStrict(true).
//	    Build()
//
// Resolution runs to completion inside Build. The returned Config is
// immutable and safe for concurrent reads.
package strata

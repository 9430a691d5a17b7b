// Package config loads, validates and watches the upscout configuration.
//
// Configuration lives in a single YAML file, ~/.config/upscout/config.yaml by
// default. The location can be changed with the --config flag or the
// UPSCOUT_CONFIG environment variable. A missing file is not an error; the
// defaults from GetDefaultConfig apply.
//
// Resolution order, last one wins:
//
//  1. GetDefaultConfig
//  2. the configuration file
//  3. UPSCOUT_RANCHER_URL and UPSCOUT_RANCHER_TOKEN
//  4. command line flags (applied by the cmd package)
//
// Example:
//
//	rancher:
//	  url: https://rancher.example.com
//	discovery:
//	  allowedNamespaces: [suse-ai-up]
//	  deepProbe: true
//	monitor:
//	  interval: 2m
//	  endpoints:
//	    proxy: http://10.0.0.5:8911
//	security:
//	  disabledRules: [UP-CFG-001]
//
// Storage keeps small YAML documents next to the configuration file. The
// discover command uses it to remember the last scan report so failed
// clusters can be retried in a later invocation.
//
// Watcher reloads the file on change for the monitor command.
package config

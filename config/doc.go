// Package config loads and validates the YAML application configuration.
//
// A configuration file describes four concerns: the driver capacity
// parameters, the storage backend connection, the generated load shape
// and the observability surface. Every field has a default, so an empty
// file (or no file at all, via Default) produces a runnable configuration
// targeting a local NATS server.
//
// Environment references in the file are expanded before parsing:
//
//	storage:
//	  nats:
//	    urls: ["nats://${NATS_HOST}:4222"]
//	    token: "${NATS_TOKEN}"
//
// Validation distinguishes hard errors, which fail Load, from tuning
// concerns such as an overflow-prone queue-capacity and batch-size
// product, which the driver warns about at construction instead.
package config

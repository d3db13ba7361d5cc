// Package config handles configuration loading for ghiseu-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${GHISEU_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "8h"
//	tools:
//	  timeout: "5s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # Chat API and operator console
//
// Database:
//
//	database:
//	  path: "/var/lib/ghiseu/gateway.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${GHISEU_JWT_SECRET}"  # Required
//	  token_ttl: "8h"
//
// External tools:
//
//	tools:
//	  ocr_url: "http://localhost:8090/ocr"
//	  eligibility_url: "http://localhost:8090/eligibility"
//	  notify_url: "http://localhost:8090/notify"
//	  timeout: "5s"
//	  retry_attempts: 2
//
// Appointment slot seeding:
//
//	scheduling:
//	  seed_on_start: true
//	  seed_days: 7
//	  locations: ["Bucuresti-S1", "Ilfov-01"]
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/ghiseu/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

// Package config loads runtime configuration for the scriptguard admin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. SCRIPTGUARD_ADMIN_ADDR, SCRIPTGUARD_ADMIN_TOKEN, SCRIPTGUARD_ADMIN_TIMEOUT.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "timeout": "10s"
//	}
package config

// Package config loads the azauth configuration.
//
// Configuration is read from config.yaml in a single directory, by default
// ~/.config/azauth. A custom directory can be given with the --config-path flag.
// Missing files fall back to the defaults from GetDefaultConfig.
//
// # Precedence
//
// From lowest to highest:
//   - built-in defaults
//   - config.yaml
//   - a .env file in the working directory (never replacing variables already set)
//   - AZAUTH_* environment variables
//   - command line flags, applied by the CLI
//
// # File Format
//
//	authority: https://login.microsoftonline.com/contoso.onmicrosoft.com
//	clientID: 04b07795-8ddb-461a-bbee-02f9e1bf7b46
//	resource: https://management.core.windows.net/
//	redirectURI: http://localhost:8400/
//	webUI: auto
//	cache:
//	  path: /home/me/.config/azauth/tokencache.json
//	  lockAttempts: 3
//	  lockDelay: 10s
//	http:
//	  timeout: 30s
//	acquisition:
//	  codeFreshness: 300s
//	  expiryMargin: 5m
//
// Validation reports all problems in one error.
package config

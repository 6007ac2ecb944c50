// Package config loads the bridge configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file, then
// QBRIDGE_* environment variables. Command-line flags are applied last by the
// qbridge command.
//
// # Environment Variables
//
//   - QBRIDGE_NODE_URL: base URL of the Qortal core API
//   - QBRIDGE_PUBLIC_NODES: comma-separated gateway URLs treated as public nodes
//   - QBRIDGE_NODE_TIMEOUT: per-request timeout in milliseconds (100-600000)
//   - QBRIDGE_RETRY_ATTEMPTS: attempts per retried transaction (1-100)
//   - QBRIDGE_RETRY_DELAY: pause between attempts in milliseconds
//   - QBRIDGE_PERMISSION_TIMEOUT: consent prompt timeout in milliseconds
//   - QBRIDGE_STORE_BACKEND: memory, file or sqlite
//   - QBRIDGE_STORE_PATH: path of the file or sqlite store
//   - QBRIDGE_VAULT_DIR: directory holding the vault salt; enables at-rest encryption
//   - QBRIDGE_LISTEN_ADDR: address of the WebSocket host
//   - QBRIDGE_ALLOWED_ORIGINS: comma-separated origins accepted by the WebSocket host
//   - QBRIDGE_LOG_LEVEL: logrus level name
//
// Invalid or out-of-range environment values are logged with a warning and the
// previous value is kept.
package config

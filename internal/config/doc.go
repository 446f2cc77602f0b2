// Package config loads and validates the YAML provisioning file: the
// ordered channel roster, the ledger rows, the weight budgets, and the
// daemon's journal and metrics outputs. It also provides a file watcher
// for hot-reloading budget limits between steps.
package config

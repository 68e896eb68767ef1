// Package logger provides a zap-based logging facade with context propagation.
//
// A global sugared logger is available through package-level helpers, and a
// request- or component-scoped logger can be attached to a context via
// ToContext/WithName. Helpers ending in KV log structured key-value pairs.
package logger

// Package errors defines error types for the study bridge.
//
// This package provides structured error types for each failure scenario
// when supervising the worker process and exchanging commands with it. All
// error types support unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors

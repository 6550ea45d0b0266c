// Package core defines the shared language of the unitable system.
//
// This package contains:
//   - Engine-facing types (AdapterConfig, Column, TableMetadata, Rows)
//   - Operation arguments (Handle, Source, Sink, SortKey, JoinOptions, Aggregation)
//   - Typed errors raised by the session layer
//   - Operation summaries delivered to observers
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

// Package output writes build artifacts and reports on them.
//
// The package is organized around three concerns:
//
//   - Writers (writer.go): artifact destinations behind the [Writer]
//     interface. [FileWriter] writes to disk; [DryRunWriter] records
//     what would change without touching the file system.
//
//   - Diffs (diff.go): unified diffs between existing and proposed file
//     contents, printed with optional colour.
//
//   - Status lines (status.go): one-line summaries of finished task runs.
package output

/*
Package domain contains the core types shared by the notebook kernel and its adapters.

It is kept free of I/O and third-party dependencies, following the same
hexagonal split as the rest of the module.

# Key Entities

  - Worker: a snapshot of one running (or finished) operation invocation.
  - Invocation: the outcome metadata of a blocking invocation.
  - MigrationReport / TeardownReport: what a reload or a shutdown did.
  - LifecycleHooks: callbacks for embedders that want to observe the kernel.

The error taxonomy lives in errors.go: sentinels for errors.Is and typed errors
for the non-fatal, per-attribute and per-resource failures.
*/
package domain

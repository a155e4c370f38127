/*
Package ports defines the driven ports (interfaces) of the notebook kernel.

These interfaces decouple the kernel from where unit definitions come from,
how operators request cancellation and how ad-hoc expressions are evaluated.

# Key Interfaces

  - UnitLoader / LoadingContext: resolve and instantiate unit definitions (memory catalog, Go plugins).
  - Classifier: tells reloadable-codebase types apart from platform/library types.
  - CancellationSignal: an edge-triggered marker (file, Redis key) that interrupts all live workers.
  - Evaluator: the single-expression evaluator used by the command loop.
*/
package ports

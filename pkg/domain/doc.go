/*
Package domain contains the core domain models of the Arbor execution engine.

It defines the vocabulary shared by the runtime, the adapters and the hosts:
node identities, the two-valued Outcome, the event kinds that flow through the
dispatcher, and the lifecycle hooks used for observability. This package is kept
pure and free of external dependencies like I/O or persistence.

# Key Entities

  - NodeID: Identifies a point in the control-flow tree.
  - Outcome: The Pass/Fail result of evaluating a node.
  - EventKind: The request/outcome protocol events plus interrupt and progress.
  - LifecycleHooks: Callbacks for auditing requests, outcomes and external tasks.
*/
package domain

/*
Package ports defines the driven ports (interfaces) around the Arbor engine.

These interfaces keep the execution core free of storage and coordination
concerns, so trees can be loaded from disk or memory and run histories kept
in memory or Redis.

# Key Interfaces

  - TreeSource: Retrieves raw tree definitions by name (e.g., from a directory or memory).
  - Journal: Persists the outcome history of runs.
  - DistributedLocker: Provides distributed locking for exclusive access to a tree across replicas.
*/
package ports

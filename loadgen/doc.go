// Package loadgen generates the operation stream the driver executes and
// collects the completions coming back.
//
// Generator builds ranges of operations per a weighted type mix, paces
// them with a token-bucket rate limit and pushes them through a Submitter.
// Backpressure handling follows the submission taxonomy: a partially
// accepted range is retried from the first rejected element after a short
// wait, while a closed submitter ends the run cleanly.
//
// Recorder is the downstream side. It is handed to the storage protocol
// as its completion hook and tallies terminal statuses on a bounded queue
// sized by the configured downstream capacity. When completions outrun the
// consumer the excess is counted as overflow instead of blocking workers,
// which is exactly the overload the driver's capacity warning points at.
package loadgen

// Package backend supervises the zxdb console process and decides when its
// debug adapter server is ready to accept a session.
//
// A Supervisor owns at most one console at a time. It spawns the console
// through a Host, learns the shell pid asynchronously, and tears the whole
// process group down on Stop. A Prober polls the adapter port with a fixed
// retry interval until it connects or a wall-clock deadline expires; the
// outcome of each wait is recorded exactly once in a probeState, whichever of
// the success path, the deadline timer, an early console exit, Stop, or
// context cancellation gets there first.
package backend

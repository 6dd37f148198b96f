// Package process starts and watches the supervised OS processes.
//
// Two invocation styles exist:
//
//   - Child: foreground services (upsd -F, upsmon -F, the dashboard) run as
//     direct children in their own process group, with stdout/stderr
//     streamed line by line into a module logger.
//   - RunCommand: run-to-completion control commands (upsdrvctl) with a
//     bounded timeout; the NUT drivers it forks daemonize away and are
//     probed through their own PID files afterwards.
//
// Stopping works on plain PIDs rather than handles because services
// launched by a previous supervisor instance are re-adopted from PID files
// and have no in-process handle.
package process

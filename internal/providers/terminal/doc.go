// Package terminal runs shell commands on pseudo-terminals.
//
// Every shell is a Process (creack/pty). A Process pushes output to one
// subscriber at a time; output that arrives with nobody subscribed lands in
// a bounded backlog that only Drain returns. Each Process emits exactly one
// ExitEvent, and exactly one owner receives it:
//   - Executor.Run waits for it directly
//   - Registry runs a watcher per session that removes the session
//   - Tracker runs a watcher per background job that records its status
//
// Commands run in one of four modes:
//   - direct: fresh shell, command then "exit", bounded by a timeout
//   - session: an existing shell; completion is detected with an echoed
//     marker (or a fixed grace window when configured)
//   - interactive: fresh shell, short capture, then kept as a session
//   - background: fresh shell tracked by pid, returns immediately
//
// Provider exposes these as tools:
//   - execute_shell: run a command in one of the modes above
//   - list_processes / kill_process: background jobs
//   - create_session / read_session / close_session / list_sessions
//
// Every validated execute_shell call is written to the history store with
// exit code 0 on success and 1 on any failure.
package terminal

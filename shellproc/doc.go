// Package shellproc manages background shell processes for the task loop.
//
// It provides a Manager that spawns commands detached into their own
// process groups, captures their output concurrently, accepts interactive
// input, and terminates them gracefully or forcefully. Each spawned
// process is tracked under an opaque identifier that is never reused for
// the lifetime of the Manager; once a process is observed dead its record
// is removed and further queries fail with ErrNotFound.
//
// The registry is the single shared mutable resource: structural changes
// (insert on spawn, remove on observed death) are serialized under one
// lock, while per-process output buffers use their own finer-grained lock
// so capture goroutines never block on control-thread reads.
//
//	mgr := shellproc.NewManager(shellproc.DefaultConfig(), nil)
//	defer mgr.StopAll()
//
//	snap, err := mgr.Spawn("python3 -u server.py")
//	out, err := mgr.PeekOutput(snap.ID)
//	err = mgr.SendInput(snap.ID, "ping")
//	res, err := mgr.Stop(snap.ID)
package shellproc

package probe

// ExecutionContext identifies one concurrently running invocation, typically
// the kernel thread id. Ids are reused once an invocation completes.
type ExecutionContext uint32

// Task is the execution context of a probe hit together with the process it
// belongs to. The process id is only consulted by filters.
type Task struct {
	Context ExecutionContext
	TGID    uint32
}

// TaskFromPidTgid splits a kernel pid_tgid value: the low 32 bits are the
// thread id, the high 32 bits the thread group (process) id.
func TaskFromPidTgid(pidTgid uint64) Task {
	return Task{
		Context: ExecutionContext(uint32(pidTgid)),
		TGID:    uint32(pidTgid >> 32),
	}
}

// PidTgid is the inverse of TaskFromPidTgid.
func (t Task) PidTgid() uint64 {
	return uint64(t.TGID)<<32 | uint64(t.Context)
}

package vault

// Open assembles a Manager over the two durable units of a vault: the entry
// blob and the master-password blob. Nothing is read until first use.
func Open(entries, master Blob, params HashParams, opts Options) *Manager {
	engine := NewEngine(params)
	return NewManager(engine, NewGate(master, engine), NewStore(entries), opts)
}

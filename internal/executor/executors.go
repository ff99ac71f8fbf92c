package executor

// Executors groups the pools used by the repository. Disk work and network
// work run on separate pools so a hung fetch never starves local reads.
type Executors struct {
	// Disk has a single worker: local writes apply in submission order.
	Disk    *Pool
	Network *Pool
}

// DefaultNetworkWorkers is the network pool size used when none is configured.
const DefaultNetworkWorkers = 3

// New creates the disk pool and a network pool with networkWorkers workers.
func New(networkWorkers int) *Executors {
	if networkWorkers < 1 {
		networkWorkers = DefaultNetworkWorkers
	}
	return &Executors{
		Disk:    NewPool("disk", 1),
		Network: NewPool("network", networkWorkers),
	}
}

// Close drains both pools.
func (e *Executors) Close() {
	e.Network.Close()
	e.Disk.Close()
}

package metrics

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu         sync.Mutex
	collectors []prometheus.Collector
	registered = map[prometheus.Registerer]bool{}
)

// register queues collectors from the init funcs of this package.
func register(cs ...prometheus.Collector) {
	mu.Lock()
	collectors = append(collectors, cs...)
	mu.Unlock()
}

// Register adds every collector of the package to reg. Calling it again with
// the same registerer does nothing.
func Register(reg prometheus.Registerer) error {
	mu.Lock()
	defer mu.Unlock()
	if registered[reg] {
		return nil
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var dup prometheus.AlreadyRegisteredError
			if !errors.As(err, &dup) {
				return err
			}
		}
	}
	registered[reg] = true
	return nil
}

// MustRegister registers with the default registry served on /metrics.
func MustRegister() {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

package main

import (
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog/log"
)

type metrics struct {
	reg gometrics.Registry
}

var m = &metrics{reg: gometrics.DefaultRegistry}

func incr(name string, i int64) {
	m.incr(name, i)
}

func decr(name string, i int64) {
	m.decr(name, i)
}

func finalMetrics() {
	log.Info().Interface("counters", m.counters()).Msg("final metrics")
}

func (m *metrics) incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func (m *metrics) decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}

// counters snapshots every registered counter for the stats endpoints.
func (m *metrics) counters() map[string]int64 {
	snapshot := make(map[string]int64)
	m.reg.Each(func(name string, i interface{}) {
		if c, ok := i.(gometrics.Counter); ok {
			snapshot[name] = c.Count()
		}
	})
	return snapshot
}

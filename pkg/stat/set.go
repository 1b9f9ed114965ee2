// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VividCortex/gohistogram"
	"github.com/prometheus/client_golang/prometheus"
)

// This file provides prometheus style metrics (Val type) for instrumenting code for monitoring.
// It also provides a registry for such metrics (Set type) and a global default registry.
//
// Simple uses of metrics:
//
//	statFoo := stat.New("metric name", "metric description")
//	statFoo.Add(1)
//
//	stat.New("metric name", "metric description", func() int { return len(mySlice) })

type UI struct {
	Name  string
	Desc  string
	Level Level
	Value string
	V     int
}

func New(name, desc string, opts ...any) *Val {
	return Global.New(name, desc, opts...)
}

func Collect(level Level) []UI {
	return Global.Collect(level)
}

// Global is the process-wide registry exported to the default Prometheus registerer.
var Global = NewSet(prometheus.DefaultRegisterer)

// Set is a registry of metrics.
type Set struct {
	mu    sync.Mutex
	vals  map[string]*Val
	reg   prometheus.Registerer
	start time.Time
}

// NewSet creates a registry. Metrics with the Prometheus option are
// registered with reg, nil disables the export.
func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		vals:  make(map[string]*Val),
		reg:   reg,
		start: time.Now(),
	}
}

// Level controls if the metric should be printed to console in periodic heartbeat logs,
// or showed on the simple status page only.
type Level int

const (
	All Level = iota
	Simple
	Console
)

// Prometheus exports the metric to Prometheus under the given name.
type Prometheus string

// Rate says to show the metric rate per unit of time in addition to the total value.
type Rate struct{}

// Distribution says to collect a histogram of individual samples.
// Val then returns the mean.
type Distribution struct{}

// Additionally a custom 'func() int' can be passed to read the metric value from the function.
// and 'func(int, time.Duration) string' can be passed for custom formatting of the metric value.

func (s *Set) New(name, desc string, opts ...any) *Val {
	v := &Val{
		name: name,
		desc: desc,
		fmt:  func(v int, period time.Duration) string { return strconv.Itoa(v) },
	}
	var promName string
	for _, o := range opts {
		switch opt := o.(type) {
		case Level:
			v.level = opt
		case Rate:
			v.fmt = formatRate
		case Distribution:
			v.hist = true
			v.fmt = v.formatDistribution
		case func() int:
			v.ext = opt
		case func(int, time.Duration) string:
			v.fmt = opt
		case Prometheus:
			promName = string(opt)
		default:
			panic(fmt.Sprintf("unknown stats option %#v", o))
		}
	}
	if promName != "" && s.reg != nil {
		// Prometheus Instrumentation https://prometheus.io/docs/guides/go-application.
		err := s.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: promName,
			Help: desc,
		},
			func() float64 { return float64(v.Val()) },
		))
		var already prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &already) {
			panic(fmt.Sprintf("failed to export %v to prometheus: %v", name, err))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vals[name] != nil {
		panic(fmt.Sprintf("duplicate stat %q", name))
	}
	s.vals[name] = v
	return v
}

// Get returns a registered metric or nil.
func (s *Set) Get(name string) *Val {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vals[name]
}

func (s *Set) Collect(level Level) []UI {
	s.mu.Lock()
	defer s.mu.Unlock()
	period := time.Since(s.start)
	if period < time.Second {
		period = time.Second
	}
	var res []UI
	for _, v := range s.vals {
		if v.level < level {
			continue
		}
		val := v.Val()
		res = append(res, UI{
			Name:  v.name,
			Desc:  v.desc,
			Level: v.level,
			Value: v.fmt(val, period),
			V:     val,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Level != res[j].Level {
			return res[i].Level > res[j].Level
		}
		return res[i].Name < res[j].Name
	})
	return res
}

// Format renders collected metrics one per line.
func Format(stats []UI) string {
	var b strings.Builder
	for _, st := range stats {
		fmt.Fprintf(&b, "%-20v %v\n", st.Name+":", st.Value)
	}
	return b.String()
}

type Val struct {
	name    string
	desc    string
	level   Level
	val     atomic.Int64
	ext     func() int
	fmt     func(int, time.Duration) string
	hist    bool
	histMu  sync.Mutex
	histVal *gohistogram.NumericHistogram
}

const histogramBuckets = 255

func (v *Val) Add(val int) {
	if v.ext != nil {
		panic(fmt.Sprintf("stat %v is in external mode", v.name))
	}
	if v.hist {
		v.histMu.Lock()
		if v.histVal == nil {
			v.histVal = gohistogram.NewHistogram(histogramBuckets)
		}
		v.histVal.Add(float64(val))
		v.histMu.Unlock()
		return
	}
	v.val.Add(int64(val))
}

func (v *Val) Val() int {
	if v.ext != nil {
		return v.ext()
	}
	if v.hist {
		v.histMu.Lock()
		defer v.histMu.Unlock()
		if v.histVal == nil {
			return 0
		}
		return int(v.histVal.Mean())
	}
	return int(v.val.Load())
}

// Quantile returns the q-th quantile of a Distribution metric.
func (v *Val) Quantile(q float64) float64 {
	v.histMu.Lock()
	defer v.histMu.Unlock()
	if v.histVal == nil {
		return 0
	}
	return v.histVal.Quantile(q)
}

func (v *Val) formatDistribution(mean int, period time.Duration) string {
	return fmt.Sprintf("%v (p50 %.0f, p90 %.0f)", mean, v.Quantile(0.5), v.Quantile(0.9))
}

func formatRate(v int, period time.Duration) string {
	secs := max(int(period.Seconds()), 1)
	if x := v / secs; x >= 10 {
		return fmt.Sprintf("%v (%v/sec)", v, x)
	}
	if x := v * 60 / secs; x >= 10 {
		return fmt.Sprintf("%v (%v/min)", v, x)
	}
	x := v * 60 * 60 / secs
	return fmt.Sprintf("%v (%v/hour)", v, x)
}

// Package proc reads host-wide CPU and memory utilization from procfs and
// exposes it as a sampler.Source for the measurement pipeline.
//
// Readers
//
//   - ReadSystemCPU(root): aggregate "cpu" line of <root>/stat as jiffy
//     counters (Active, Total). Utilization needs two readings:
//
//     U = (Active₁ - Active₀) / (Total₁ - Total₀)
//
//   - ReadMemInfo(root): MemTotal, MemAvailable, MemFree, Buffers and Cached
//     from <root>/meminfo. MemInfo.Used() is MemTotal - MemAvailable, falling
//     back to Total - Free - Buffers - Cached on kernels without MemAvailable.
//
// Both take the procfs mount point so tests can point them at a fixture tree.
//
// # SystemSource
//
// SystemSource keeps the previous CPU reading and turns consecutive calls into
// a percentage in [0,100]. Reset re-seeds the baseline; the sampler calls it
// when sampling starts so the first sample covers only the monitored window.
//
//	src, err := proc.NewSystemSource("")
//	if err != nil { ... }
//	s := sampler.New(src)
//
// Counters that go backwards (CPU hotplug, wrap) yield a zero delta rather
// than a negative one. Only reads are performed; no privileges are required.
//
// Package import path: github.com/ja7ad/greenpipeline/pkg/system/proc
package proc

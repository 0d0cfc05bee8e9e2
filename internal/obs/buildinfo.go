package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "langhub access service build and deployment information.",
		},
		[]string{"version", "commit", "distribution"},
	)
)

// InitBuildInfo registers build_info once and sets it to 1 for the running
// build. distribution is "cloud" or "self-hosted", so dashboards can split
// fleets by deployment mode.
func InitBuildInfo(version, commit, distribution string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, distribution).Set(1)
}

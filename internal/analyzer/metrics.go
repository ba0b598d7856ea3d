package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentic-research/shape/internal/structure"
)

// Metrics counts analyzed documents and type upgrades.
type Metrics struct {
	Documents *prometheus.CounterVec
	Upgrades  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shape_documents_total",
			Help: "Documents fed to a structure tree, by root type and result.",
		}, []string{"root", "result"}),
		Upgrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shape_type_upgrades_total",
			Help: "Node type changes applied to a structure tree.",
		}, []string{"from", "to"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Documents, m.Upgrades} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// UpgradeHook counts upgrades; pass it to structure.WithUpgradeHook.
func (m *Metrics) UpgradeHook() func(structure.NodePath, structure.NodeType, structure.NodeType) {
	return func(_ structure.NodePath, from, to structure.NodeType) {
		m.Upgrades.WithLabelValues(from.String(), to.String()).Inc()
	}
}

func (m *Metrics) document(root, result string) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(root, result).Inc()
}

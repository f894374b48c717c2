package node

import (
	"fmt"
	"time"

	"github.com/eth2030/presale/core/rawdb"
)

// Health statuses, from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var statusRank = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

// SubsystemHealth is the outcome of one check.
type SubsystemHealth struct {
	Name    string        `json:"name" yaml:"name"`
	Status  string        `json:"status" yaml:"status"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty"`
	Latency time.Duration `json:"latency" yaml:"latency"`
}

// HealthReport lists every check in a fixed order. Its status is the
// worst of theirs.
type HealthReport struct {
	OverallStatus string             `json:"status" yaml:"status"`
	Subsystems    []*SubsystemHealth `json:"subsystems" yaml:"subsystems"`
	CheckedAt     time.Time          `json:"checkedAt" yaml:"checkedAt"`
}

type healthCheck struct {
	name string
	run  func() (status, message string)
}

// Health runs the store and sale checks.
func (n *Node) Health() *HealthReport {
	report := &HealthReport{OverallStatus: StatusHealthy, CheckedAt: time.Now()}
	for _, c := range []healthCheck{
		{"store", n.checkStore},
		{"sale", n.checkSale},
	} {
		start := time.Now()
		status, msg := c.run()
		report.Subsystems = append(report.Subsystems, &SubsystemHealth{
			Name: c.name, Status: status, Message: msg, Latency: time.Since(start),
		})
		if statusRank[status] > statusRank[report.OverallStatus] {
			report.OverallStatus = status
		}
	}
	return report
}

// checkStore fails when the persisted call sequence lags the executor.
func (n *Node) checkStore() (string, string) {
	var (
		persisted uint64
		err       error
		readErr   error
	)
	n.exec.View(func() {
		persisted, err = rawdb.ReadHeadSeq(n.db)
		readErr = n.st.Error()
	})
	switch {
	case err != nil:
		return StatusUnhealthy, err.Error()
	case persisted != n.exec.Seq():
		return StatusUnhealthy, fmt.Sprintf("persisted sequence %d, executor at %d", persisted, n.exec.Seq())
	case readErr != nil:
		return StatusDegraded, readErr.Error()
	}
	return StatusHealthy, fmt.Sprintf("%s store at call %d", n.config.Store, persisted)
}

// checkSale degrades while no sale is bound or the sale is paused.
func (n *Node) checkSale() (string, string) {
	s, err := n.Sale()
	if err != nil {
		return StatusDegraded, err.Error()
	}
	st := s.Status()
	if st.Paused {
		return StatusDegraded, "sale paused"
	}
	return StatusHealthy, "sold " + st.TotalSold.Dec()
}

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_reports_filed_total",
		Help: "Report calls accepted by the ledger.",
	})
	reportsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_reports_approved_total",
		Help: "Ledger entries cleared with the message kept.",
	})
	reportsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hangartalk_reports_rejected_total",
		Help: "Ledger entries cleared with the message deleted.",
	})
)

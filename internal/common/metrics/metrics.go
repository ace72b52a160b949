// Package metrics holds the Prometheus collectors shared by the services.
// Each service builds its own Registry so tests never collide on the default
// registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	CartOperations *prometheus.CounterVec
	CartRejections *prometheus.CounterVec
	RoundsSent     prometheus.Counter
	BillsCreated   prometheus.Counter
	BilledRevenue  prometheus.Counter
	BillUnits      prometheus.Histogram
	KitchenOrders  *prometheus.CounterVec
	KitchenPending prometheus.Gauge
	MessagesIn     *prometheus.CounterVec
	WSClients      prometheus.Gauge
	CatalogRefresh *prometheus.CounterVec
}

func New(service string) *Registry {
	constLabels := prometheus.Labels{"service": service}
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CartOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_cart_operations_total",
			Help:        "Cart mutations by operation",
			ConstLabels: constLabels,
		}, []string{"op"}),
		CartRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_cart_rejections_total",
			Help:        "Cart operations refused, by error kind",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		RoundsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pos_rounds_sent_total",
			Help:        "Order rounds sent to the kitchen",
			ConstLabels: constLabels,
		}),
		BillsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pos_bills_created_total",
			Help:        "Bills finalized",
			ConstLabels: constLabels,
		}),
		BilledRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pos_billed_revenue_total",
			Help:        "Sum of bill grand totals",
			ConstLabels: constLabels,
		}),
		BillUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "pos_bill_units",
			Help:        "Units per bill",
			Buckets:     []float64{1, 2, 3, 5, 8, 13, 21, 34},
			ConstLabels: constLabels,
		}),
		KitchenOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_kitchen_orders_total",
			Help:        "Kitchen orders by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		KitchenPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pos_kitchen_pending_orders",
			Help:        "Orders currently on the kitchen board",
			ConstLabels: constLabels,
		}),
		MessagesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_messages_consumed_total",
			Help:        "Broker deliveries by queue and result",
			ConstLabels: constLabels,
		}, []string{"queue", "result"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pos_ws_clients",
			Help:        "Connected websocket clients",
			ConstLabels: constLabels,
		}),
		CatalogRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_catalog_refresh_total",
			Help:        "Menu catalog reloads by result",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CartOperations, r.CartRejections, r.RoundsSent,
		r.BillsCreated, r.BilledRevenue, r.BillUnits,
		r.KitchenOrders, r.KitchenPending, r.MessagesIn,
		r.WSClients, r.CatalogRefresh,
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

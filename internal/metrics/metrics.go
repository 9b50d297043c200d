package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ResultSent            = "sent"
	ResultRejected        = "rejected"
	ResultTransportError  = "transport_error"
	ResultInvalidResponse = "invalid_response"
)

var (
	WhatsAppSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "whatsapp_send_total", Help: "WhatsApp send outcomes"},
		[]string{"result"},
	)
	WhatsAppLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "whatsapp_send_latency_seconds", Help: "WhatsApp API call latency"},
	)
	MessageLogWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "message_log_writes_total", Help: "Message log persistence results"},
		[]string{"op", "result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(WhatsAppSend, WhatsAppLatency, MessageLogWrites)
}

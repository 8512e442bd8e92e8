package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics covers plan quotes, guest count lock activity and checkout.
type BookingMetrics struct {
	planQuotes       *prometheus.CounterVec
	lockTransitions  *prometheus.CounterVec
	lockedRejections *prometheus.CounterVec
	guestCountEvents *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	planQuotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_plan_quotes_total",
		Help: "Payment plans computed, by module and plan type.",
	}, []string{"module", "plan_type"})
	lockTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guest_count_lock_transitions_total",
		Help: "Guest count lock and unlock transitions, by reason.",
	}, []string{"transition", "reason"})
	lockedRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guest_count_locked_rejections_total",
		Help: "Guest count edits refused because the count is locked.",
	}, []string{"owner_kind"})
	guestCountEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guest_count_events_total",
		Help: "Guest count notifications seen by in-process listeners, by event and owner kind.",
	}, []string{"event", "owner_kind"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_charges_total",
		Help: "Checkout charge attempts, by module and outcome.",
	}, []string{"module", "outcome"})
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_processor_duration_seconds",
		Help:    "Latency of payment processor calls during checkout.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})
	reg.MustRegister(planQuotes, lockTransitions, lockedRejections, guestCountEvents, checkouts, checkoutDuration)
	return &BookingMetrics{
		planQuotes:       planQuotes,
		lockTransitions:  lockTransitions,
		lockedRejections: lockedRejections,
		guestCountEvents: guestCountEvents,
		checkouts:        checkouts,
		checkoutDuration: checkoutDuration,
	}
}

func (m *BookingMetrics) IncPlanQuote(module, planType string) {
	if m == nil || m.planQuotes == nil {
		return
	}
	m.planQuotes.WithLabelValues(normalizeLabel(module), normalizeLabel(planType)).Inc()
}

// IncLockTransition records a "locked" or "unlocked" transition.
func (m *BookingMetrics) IncLockTransition(transition, reason string) {
	if m == nil || m.lockTransitions == nil {
		return
	}
	m.lockTransitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(reason)).Inc()
}

func (m *BookingMetrics) IncLockedRejection(ownerKind string) {
	if m == nil || m.lockedRejections == nil {
		return
	}
	m.lockedRejections.WithLabelValues(normalizeLabel(ownerKind)).Inc()
}

func (m *BookingMetrics) IncGuestCountEvent(event, ownerKind string) {
	if m == nil || m.guestCountEvents == nil {
		return
	}
	m.guestCountEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(ownerKind)).Inc()
}

func (m *BookingMetrics) IncCheckout(module, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(module), normalizeLabel(outcome)).Inc()
}

func (m *BookingMetrics) ObserveCheckout(module string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(module)).Observe(duration.Seconds())
}

package models

import "time"

// MetricsSnapshot summarises process counters for the admin dashboard.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReportsCreated           uint64    `json:"denuncias_creadas"`
	StatusTransitions        uint64    `json:"transiciones_estado"`
	EventsDropped            uint64    `json:"eventos_descartados"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the series use the custom namespace", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				manager.enrichmentInFlight.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_enrichment_in_flight" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When zero values are passed to options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithRefreshInterval(0), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "skillmatch")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording enrichment jobs", func() {
			before := value(globalManager.enrichmentJobs.WithLabelValues("skill", "tagged"))
			RecordEnrichmentJob("skill", "tagged")
			RecordEnrichmentJob("skill", "tagged")

			Convey("Then the counter advances", func() {
				after := value(globalManager.enrichmentJobs.WithLabelValues("skill", "tagged"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When an enrichment starts and finishes", func() {
			start := value(globalManager.enrichmentInFlight)
			EnrichmentStarted()
			mid := value(globalManager.enrichmentInFlight)
			EnrichmentFinished(12.5)
			end := value(globalManager.enrichmentInFlight)

			Convey("Then the in-flight gauge returns to its start value", func() {
				So(mid, ShouldEqual, start+1)
				So(end, ShouldEqual, start)
			})
		})

		Convey("When recording expansion calls", func() {
			before := value(globalManager.expansionRequests.WithLabelValues("search", "error"))
			RecordExpansionRequest("search", "error", 30)

			Convey("Then the labelled counter advances", func() {
				So(value(globalManager.expansionRequests.WithLabelValues("search", "error"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording other series", func() {
			Convey("Then nothing panics", func() {
				So(func() {
					RecordExpansionCache("hit")
					RecordRecommendation("people", 3)
					RecordPassSkipped("sessions", "teaching")
					RecordStoreLatency("find_by_tags", 0.4)
					UpdateStoreEntities("skill", 10)
					RecordHTTPRequest("/skills", "POST", "201")
					RecordHTTPRequestDuration("/skills", "POST", "201", 1.2)
					RecordErrorByComponent("expansion", "unavailable")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			UpdateStoreEntities("session", 4)
			families, err := GetRegistry().Gather()

			Convey("Then skillmatch series are exposed", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "skillmatch_store_entities")
			})
		})
	})
}

func TestSinceMs(t *testing.T) {
	Convey("Given a start time in the past", t, func() {
		start := time.Now().Add(-50 * time.Millisecond)

		Convey("Then SinceMs reports at least the elapsed milliseconds", func() {
			So(SinceMs(start), ShouldBeGreaterThanOrEqualTo, 50)
		})
	})
}

// value reads the current value of a counter or gauge.
func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		panic(err)
	}
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

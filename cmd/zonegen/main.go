// Command zonegen is a synthetic load generator for exercising the core
// stream processor: it publishes SampleEvents for a configured set of
// zones on a fixed tick, following the publisher-goroutine-per-device
// pattern the room simulator uses for its periodic Kafka writes.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dhruv-ship-it/geopulse/internal/model"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	brokers := envList("KAFKA_BROKERS", []string{"localhost:9092"})
	topic := envDefault("INGRESS_TOPIC", "raw.zone.events")
	zones := envList("ZONEGEN_ZONES", []string{"zone-a", "zone-b", "zone-c"})
	interval := envDuration("ZONEGEN_INTERVAL_MS", 1000*time.Millisecond)
	peakLoad := envFloat("ZONEGEN_PEAK_LOAD", 0.95)

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("zonegen starting", "zones", zones, "topic", topic, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zonePhase := make(map[string]float64, len(zones))
	for i, z := range zones {
		zonePhase[z] = float64(i) * math.Pi / 4
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("zonegen stopping")
			return
		case tick := <-ticker.C:
			for _, zone := range zones {
				load := syntheticLoad(zonePhase[zone], tick, peakLoad)
				ev := model.SampleEvent{
					EventID:        randomID(),
					ZoneID:         zone,
					Latitude:       zoneLatitude(zone),
					Longitude:      zoneLongitude(zone),
					Load:           load,
					EventTimestamp: tick.UnixMilli(),
					ProducedAt:     time.Now().UnixMilli(),
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					logger.Error("marshal_failed", "zone", zone, "error", err.Error())
					continue
				}
				if err := writer.WriteMessages(ctx, kafka.Message{
					Key:   []byte(zone),
					Value: payload,
				}); err != nil {
					logger.Error("publish_failed", "zone", zone, "error", err.Error())
				}
			}
		}
	}
}

// syntheticLoad produces a slowly oscillating load in [0,1] and, for part
// of each cycle, holds it at peakLoad so the generator can exercise the
// state machine's confirmation windows without operator intervention.
func syntheticLoad(phase float64, t time.Time, peakLoad float64) float64 {
	base := 0.5 + 0.15*math.Sin(float64(t.Unix())/30.0+phase)
	ramp := math.Mod(float64(t.Unix())/90.0+phase, 4.0)
	if ramp > 2.5 {
		base = peakLoad
	}
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	return base
}

func zoneLatitude(zone string) float64 {
	return 40.0 + float64(len(zone)%10)*0.01
}

func zoneLongitude(zone string) float64 {
	return -74.0 - float64(len(zone)%7)*0.01
}

func randomID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		for i := range b {
			n, _ := rand.Int(rand.Reader, big.NewInt(256))
			b[i] = byte(n.Int64())
		}
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return hex.EncodeToString(b)
}

func envDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envList(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return d
	}
	return out
}

func envDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return time.Duration(ms) * time.Millisecond
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d
	}
	return f
}

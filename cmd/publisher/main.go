// Package main provides a standalone load generator that exercises a
// running eventpipe instance's /publish and /stats endpoints. It is not
// part of the ingress→queue→worker→store core: it is a plain HTTP client,
// deliberately independent of this module's internal packages.
package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTargetURL       = "http://eventpipe:8080/publish"
	defaultDuplicationRate = 0.3
	defaultMaxEvents       = 20000

	progressEvery        = 500
	preflightDelay       = 5 * time.Second
	postRunDelay         = 5 * time.Second
	firstResponsivenessAt  = 5 * time.Second
	secondResponsivenessAt = 15 * time.Second
	responsivenessTimeout  = 2 * time.Second
	publishTimeout         = 5 * time.Second
)

var topics = []string{"order.created", "payment.success", "user.login", "sensor.read"}

type event struct {
	Topic     string         `json:"topic"`
	EventID   string         `json:"event_id"`
	Timestamp string         `json:"timestamp"`
	Source    string         `json:"source"`
	Payload   map[string]any `json:"payload"`
}

type uptimeStats struct {
	UniqueProcessed  int64 `json:"unique_processed"`
	DuplicateDropped int64 `json:"duplicate_dropped"`
}

type statsResponse struct {
	UptimeStats uptimeStats `json:"uptime_stats"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	targetURL := getEnvStr("TARGET_URL", defaultTargetURL)
	delay := getEnvFloat("DELAY", 0)
	duplicationRate := getEnvFloat("DUPLICATION_RATE", defaultDuplicationRate)
	maxEvents := getEnvInt("MAX_EVENTS", defaultMaxEvents)
	statsURL := deriveStatsURL(targetURL)

	logger.Info("publisher starting",
		slog.String("target_url", targetURL), slog.String("stats_url", statsURL),
		slog.Float64("duplication_rate", duplicationRate), slog.Int("max_events", maxEvents))

	numUnique := int(float64(maxEvents) * (1 - duplicationRate))
	numDuplicates := maxEvents - numUnique

	logger.Info("event mix planned", slog.Int("unique", numUnique), slog.Int("duplicates", numDuplicates))

	batch := generateBatch(numUnique, numDuplicates)

	client := &http.Client{Timeout: publishTimeout}

	time.Sleep(preflightDelay)

	before := fetchUptimeStats(client, statsURL, logger)
	logger.Info("stats before run",
		slog.Int64("unique_processed", before.UniqueProcessed), slog.Int64("duplicate_dropped", before.DuplicateDropped))

	responsive := make(chan bool, 2)
	time.AfterFunc(firstResponsivenessAt, func() { responsive <- checkResponsiveness(statsURL, logger) })
	time.AfterFunc(secondResponsivenessAt, func() { responsive <- checkResponsiveness(statsURL, logger) })

	start := time.Now()
	sent := sendBatch(client, targetURL, batch, delay, logger)
	duration := time.Since(start)

	logger.Info("run complete", slog.Int("sent", sent), slog.Duration("duration", duration))

	time.Sleep(postRunDelay)

	after := fetchUptimeStats(client, statsURL, logger)
	deltaUnique := after.UniqueProcessed - before.UniqueProcessed
	deltaDropped := after.DuplicateDropped - before.DuplicateDropped

	logger.Info("validation",
		slog.Int64("delta_unique", deltaUnique), slog.Int("target_unique", numUnique),
		slog.Int64("delta_dropped", deltaDropped), slog.Int("target_duplicates", numDuplicates))

	if abs64(deltaUnique-int64(numUnique)) <= 10 {
		logger.Info("unique count validation: ok")
	} else {
		logger.Warn("unique count validation: mismatch")
	}

	anyResponsive := false

	for i := 0; i < cap(responsive) && i < 2; i++ {
		if <-responsive {
			anyResponsive = true
		}
	}

	if anyResponsive {
		logger.Info("responsiveness check: ok")
	} else {
		logger.Warn("responsiveness check: failed or not run")
	}
}

func generateBatch(numUnique, numDuplicates int) []event {
	uniqueEvents := make([]event, 0, numUnique)
	for i := 0; i < numUnique; i++ {
		uniqueEvents = append(uniqueEvents, generateEvent(topics[rand.Intn(len(topics))], uuid.New().String()))
	}

	all := make([]event, 0, numUnique+numDuplicates)
	all = append(all, uniqueEvents...)

	for i := 0; i < numDuplicates; i++ {
		if len(uniqueEvents) == 0 {
			break
		}

		all = append(all, uniqueEvents[rand.Intn(len(uniqueEvents))])
	}

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	return all
}

func generateEvent(topic, eventID string) event {
	return event{
		Topic:     topic,
		EventID:   eventID,
		Timestamp: time.Now().Format("2006-01-02T15:04:05"),
		Source:    "publisher-service",
		Payload: map[string]any{
			"amount":  rand.Intn(991) + 10,
			"user_id": rand.Intn(500) + 1,
			"run_id":  uuid.New().String(),
		},
	}
}

func sendBatch(client *http.Client, targetURL string, batch []event, delay float64, logger *slog.Logger) int {
	sent := 0

	for _, e := range batch {
		body, err := json.Marshal(e)
		if err != nil {
			logger.Error("failed to marshal event", slog.String("error", err.Error()))

			continue
		}

		resp, err := client.Post(targetURL, "application/json", bytes.NewReader(body))
		if err != nil {
			logger.Warn("publish request failed", slog.String("error", err.Error()))
			time.Sleep(time.Second)

			continue
		}

		_ = resp.Body.Close()

		sent++

		if sent%progressEvery == 0 {
			logger.Info("progress", slog.Int("sent", sent), slog.Int("total", len(batch)), slog.Int("last_status", resp.StatusCode))
		}

		if delay > 0 {
			time.Sleep(time.Duration(delay * float64(time.Second)))
		}
	}

	return sent
}

func checkResponsiveness(statsURL string, logger *slog.Logger) bool {
	client := &http.Client{Timeout: responsivenessTimeout}

	start := time.Now()

	resp, err := client.Get(statsURL)
	if err != nil {
		logger.Warn("responsiveness check failed", slog.String("error", err.Error()))

		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK

	logger.Info("responsiveness check",
		slog.Bool("ok", ok), slog.Int("status", resp.StatusCode), slog.Duration("latency", time.Since(start)))

	return ok
}

func fetchUptimeStats(client *http.Client, statsURL string, logger *slog.Logger) uptimeStats {
	resp, err := client.Get(statsURL)
	if err != nil {
		logger.Warn("failed to fetch stats", slog.String("error", err.Error()))

		return uptimeStats{}
	}
	defer resp.Body.Close()

	var parsed statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		logger.Warn("failed to decode stats response", slog.String("error", err.Error()))

		return uptimeStats{}
	}

	return parsed.UptimeStats
}

func deriveStatsURL(targetURL string) string {
	if strings.Contains(targetURL, "/publish") {
		return strings.Replace(targetURL, "/publish", "/stats", 1)
	}

	idx := strings.LastIndex(targetURL, "/")
	if idx == -1 {
		return targetURL
	}

	return targetURL[:idx] + "/stats"
}

func getEnvStr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}

	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}

	return defaultValue
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}

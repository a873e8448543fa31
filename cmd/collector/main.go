package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-soro/housing-ml-pipeline/pipeline"
)

var (
	msgsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_collector_messages_received_total",
		Help: "Total number of MQTT messages received by the collector.",
	})
	msgsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_collector_messages_submitted_total",
		Help: "Total number of records accepted by the prediction API.",
	})
	msgsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_collector_messages_rejected_total",
		Help: "Total number of payloads dropped before submission as invalid.",
	})
	msgsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housing_collector_messages_failed_total",
		Help: "Total number of submissions the API refused or that failed in transit.",
	})
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiURL := getEnv("API_URL", "http://localhost:8080")
	mqttURL := getEnv("MQTT_URL", "tcp://localhost:1883")
	mqttTopic := getEnv("MQTT_TOPIC", "housing/records")
	metricsAddr := getEnv("METRICS_ADDR", ":8081")

	httpClient := &http.Client{Timeout: 10 * time.Second}

	go serveHTTP(metricsAddr)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(mqttURL)
	opts.SetClientID("housing-collector-" + time.Now().Format("20060102150405"))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, message mqtt.Message) {
		processMessage(ctx, httpClient, apiURL, message.Payload())
	})
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(mqttTopic, 0, nil)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt subscribe error: %v", token.Error())
			return
		}
		log.Printf("collector subscribed to topic=%s", mqttTopic)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if token.Error() != nil {
		log.Fatalf("mqtt connection failed: %v", token.Error())
	}

	log.Printf("collector running, mqtt=%s api=%s metrics=%s", mqttURL, apiURL, metricsAddr)

	<-ctx.Done()
	log.Printf("collector shutting down")
	client.Disconnect(250)
}

func serveHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}

// processMessage forwards one MQTT payload to the prediction API. Payloads
// that would not survive validation are dropped here instead of burning an
// HTTP round trip; the API still validates what gets through.
func processMessage(ctx context.Context, client *http.Client, apiURL string, payloadRaw []byte) {
	msgsReceived.Inc()

	var raw map[string]any
	if err := json.Unmarshal(payloadRaw, &raw); err != nil {
		msgsRejected.Inc()
		log.Printf("invalid payload: %v", err)
		return
	}
	if _, err := pipeline.ValidateRecord(raw); err != nil {
		msgsRejected.Inc()
		log.Printf("rejected payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/predictions", bytes.NewReader(payloadRaw))
	if err != nil {
		msgsFailed.Inc()
		log.Printf("building submission request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		msgsFailed.Inc()
		log.Printf("submitting record: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msgsFailed.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("api refused submission: status=%d body=%s", resp.StatusCode, body)
		return
	}

	var ack struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		msgsFailed.Inc()
		log.Printf("decoding submission response: %v", err)
		return
	}

	msgsSubmitted.Inc()
	log.Printf("submitted record: run=%s", ack.RunID)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

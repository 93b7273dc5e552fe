package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"trafficwatch-cli/internal/client"
)

// Variables to hold flag values
var (
	expBaseURL    string
	expPort       string
	expNoBypass   bool
	serviceAction string // "install", "uninstall", "start", "stop"
)

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	exit   chan struct{}
	server *http.Server
	api    *client.TrafficClient
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	registry := prometheus.NewRegistry()
	collector := &TrafficCollector{Client: p.api}
	registry.MustRegister(collector)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	addr := fmt.Sprintf(":%s", expPort)
	p.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Printf("Trafficwatch exporter listening on %s (backend %s)", addr, p.api.Config.BaseURL)

	// Blocking call to listen
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("HTTP Server error: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Signal the app to stop.
	log.Println("Stopping service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}
	close(p.exit)
	return nil
}

// --- COLLECTOR ---

type TrafficCollector struct {
	Client *client.TrafficClient
	Mutex  sync.Mutex
}

var (
	upDesc = prometheus.NewDesc(
		"trafficcam_up", "Was the last scrape successful.", nil, nil,
	)
	scrapeDurationDesc = prometheus.NewDesc(
		"trafficcam_scrape_duration_seconds", "Time taken to scrape the backend.", nil, nil,
	)
	backendHealthyDesc = prometheus.NewDesc(
		"trafficcam_backend_healthy", "Backend liveness probe (1=reachable).", nil, nil,
	)
	cameraOnlineDesc = prometheus.NewDesc(
		"trafficcam_camera_online", "Camera reachability.", []string{"id", "name", "zone"}, nil,
	)
	cameraCountDesc = prometheus.NewDesc(
		"trafficcam_cameras_total", "Total cameras grouped by status.", []string{"status"}, nil,
	)
	crossingsHourDesc = prometheus.NewDesc(
		"trafficcam_crossings_last_hour", "Line crossings in the last hour grouped by class.", []string{"class"}, nil,
	)
)

func (c *TrafficCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- scrapeDurationDesc
	ch <- backendHealthyDesc
	ch <- cameraOnlineDesc
	ch <- cameraCountDesc
	ch <- crossingsHourDesc
}

func (c *TrafficCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()
	start := time.Now()
	success := 1.0

	// 1. Health
	healthVal := 1.0
	if _, err := c.Client.GetHealth(); err != nil {
		healthVal = 0.0
	}
	ch <- prometheus.MustNewConstMetric(backendHealthyDesc, prometheus.GaugeValue, healthVal)

	// 2. Cameras
	if cams, err := c.Client.GetCameras(); err == nil {
		statusCounts := make(map[string]float64)
		for _, cam := range cams {
			online := 0.0
			if cam.Online() {
				online = 1.0
			}
			zone := cam.Zone
			if zone == "" {
				zone = "unknown"
			}
			ch <- prometheus.MustNewConstMetric(cameraOnlineDesc, prometheus.GaugeValue, online, cam.ID, cam.Name, zone)

			status := strings.ToLower(cam.Status)
			if status == "" {
				status = "online"
			}
			statusCounts[status]++
		}
		for status, count := range statusCounts {
			ch <- prometheus.MustNewConstMetric(cameraCountDesc, prometheus.GaugeValue, count, status)
		}
	} else {
		success = 0.0
		log.Printf("Error scraping cameras: %v", err)
	}

	// 3. Crossings over the last hour
	now := time.Now().UTC()
	query := client.CountQuery{Start: now.Add(-time.Hour), End: now}
	if totals, err := c.Client.CountsByClass(query); err == nil {
		for _, item := range totals {
			ch <- prometheus.MustNewConstMetric(crossingsHourDesc, prometheus.GaugeValue, float64(item.Total), item.Class)
		}
	} else {
		success = 0.0
		log.Printf("Error scraping crossing counts: %v", err)
	}

	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, success)
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, time.Since(start).Seconds())
}

// --- COMMAND ---

var exporterCmd = &cobra.Command{
	Use:   "exporter",
	Short: "Start Prometheus Exporter service",
	Long: `Starts a long-running HTTP server that exposes backend metrics
(camera reachability, crossing counts) to Prometheus.
Can be installed as a system service.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Setup Client Config
		cfg := client.ClientConfig{
			BaseURL:      strings.TrimRight(expBaseURL, "/"),
			TunnelBypass: !expNoBypass,
		}

		// 2. Define Service Configuration
		svcConfig := &service.Config{
			Name:        "trafficwatch-exporter",
			DisplayName: "Trafficwatch Prometheus Exporter",
			Description: "Exposes traffic-camera counting metrics to Prometheus",
			// Arguments passed to the binary when run as a service
			Arguments: []string{
				"exporter",
				"--backend", expBaseURL,
				"--port", expPort,
			},
		}

		prg := &program{
			api: client.New(cfg),
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			log.Fatal(err)
		}

		// 3. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if serviceAction == "install" && expBaseURL == "" {
				log.Fatal("Error: You must provide --backend to install the service.")
			}

			err = service.Control(s, serviceAction)
			if err != nil {
				log.Fatalf("Failed to %s service: %v", serviceAction, err)
			}
			fmt.Printf("Service action '%s' completed successfully.\n", serviceAction)
			return
		}

		// 4. Run the Service (Blocking)
		logger, err := s.Logger(nil)
		if err != nil {
			log.Fatal(err)
		}
		if err = s.Run(); err != nil {
			logger.Error(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exporterCmd)

	exporterCmd.Flags().StringVar(&expBaseURL, "backend", "http://localhost:8000", "Backend base URL")
	exporterCmd.Flags().StringVar(&expPort, "port", "9183", "Port to expose /metrics on")
	exporterCmd.Flags().BoolVar(&expNoBypass, "no-tunnel-bypass", false, "Do not send the tunnel bypass header")
	exporterCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop")
}

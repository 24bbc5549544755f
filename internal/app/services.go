package app

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/feedcached/feedcached/internal/config"
	"github.com/feedcached/feedcached/internal/eventbus"
	"github.com/feedcached/feedcached/internal/feeds"
	"github.com/feedcached/feedcached/internal/server"
	"github.com/feedcached/feedcached/internal/store"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Store *store.Store
	Bus   *eventbus.Bus

	// Collection pipeline
	Runner     *feeds.Runner
	collectors []collectorEntry

	// Read API
	Server *server.Server

	wg sync.WaitGroup
}

// collectorEntry pairs a collector with its refresh interval.
type collectorEntry struct {
	collector feeds.Collector
	interval  config.Duration
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	s.Store = store.NewWithTTL(cfg.Store.TTL.Duration())
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Runner = feeds.NewRunner(s.Store, s.Bus, cfg.Collectors.RateLimitRPS)
	s.Server = server.New(cfg.Server.Host, cfg.Server.Port, s.Store, s.Bus)

	client := &http.Client{Timeout: cfg.Collectors.HTTPTimeout.Duration()}

	for _, outlet := range cfg.Collectors.News.Outlets {
		var c feeds.Collector
		if outlet.Feed != "" {
			c = feeds.NewRSSCollector(outlet.Name, outlet.Feed)
		} else {
			c = feeds.NewScraper(feeds.ScrapeTarget{
				Outlet:    outlet.Name,
				URL:       outlet.URL,
				Container: outlet.Container,
				Item:      outlet.Item,
				Title:     outlet.Title,
				Link:      outlet.Link,
				Image:     outlet.Image,
				ImageAttr: outlet.ImageAttr,
				TimeAttr:  outlet.TimeAttr,
			}, client)
		}
		s.collectors = append(s.collectors, collectorEntry{
			collector: c,
			interval:  cfg.Collectors.News.RefreshInterval,
		})
	}

	if cfg.Collectors.Weather.Enabled {
		weather := feeds.NewWeatherCollector(feeds.WeatherConfig{
			URL:          cfg.Collectors.Weather.URL,
			Latitude:     strconv.FormatFloat(cfg.Collectors.Weather.Latitude, 'f', -1, 64),
			Longitude:    strconv.FormatFloat(cfg.Collectors.Weather.Longitude, 'f', -1, 64),
			ClientID:     cfg.Collectors.Weather.ClientID,
			ClientSecret: cfg.Collectors.Weather.ClientSecret,
		}, client)
		s.collectors = append(s.collectors, collectorEntry{
			collector: weather,
			interval:  cfg.Collectors.Weather.RefreshInterval,
		})
	}

	if len(s.collectors) == 0 {
		log.Warn().Msg("No collectors configured, the store will stay empty")
	}

	log.Info().
		Dur("ttl", s.Store.TTL()).
		Int("collectors", len(s.collectors)).
		Msg("Services initialized")

	return s, nil
}

// Start launches all background services. The onFatalError callback is called
// when a service fails in a way the application cannot recover from.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Expiry sweeper
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Store.Run(ctx); err != nil {
			onFatalError(err)
		}
	}()

	// Collectors
	for _, entry := range s.collectors {
		entry := entry
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Runner.Run(ctx, entry.collector, entry.interval.Duration())
		}()
	}

	// Read API
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			onFatalError(err)
		}
	}()

	return nil
}

// Stop gracefully stops all services. Start's context must already be
// cancelled; Stop waits for the background goroutines and drains the bus.
func (s *Services) Stop() error {
	s.wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
	defer cancel()
	s.Bus.Close(shutdownCtx)

	return nil
}

// README: Entry point; loads config, wires services, starts the HTTP server and shuts it down on signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"rideshare/internal/config"
	"rideshare/internal/events"
	httptransport "rideshare/internal/http"
	"rideshare/internal/infra"
	"rideshare/internal/lock"
	"rideshare/internal/maps"
	"rideshare/internal/modules/location"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/rating"
	"rideshare/internal/modules/ride"
	"rideshare/internal/modules/user"
	"rideshare/internal/notify"
	"rideshare/internal/payment"
	"rideshare/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := infra.NewLogger(cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	firebaseApp, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return fmt.Errorf("firebase init: %w", err)
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, firebaseApp)
	if err != nil {
		return fmt.Errorf("firebase init: %w", err)
	}

	var (
		userStore user.Store
		rideStore ride.Store
	)
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer dbPool.Close()
		userStore = user.NewPostgresStore(dbPool)
		rideStore = ride.NewPostgresStore(dbPool)
	} else {
		log.Warn("RIDESHARE_DB_DSN not set; rides and users are kept in memory")
		userStore = user.NewMemoryStore()
		rideStore = ride.NewMemoryStore()
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Lock.TTL)
	}

	hub := notify.NewHub(log)
	publishers := events.Multi{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				log.Warn("kafka close", "err", err)
			}
		}()
		publishers = append(publishers, kafkaPub)
	}
	if cfg.AMQP.URL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer func() {
			if err := amqpPub.Close(); err != nil {
				log.Warn("amqp close", "err", err)
			}
		}()
		publishers = append(publishers, amqpPub)
	}
	if cfg.Firebase.PushTopicPrefix != "" {
		msgClient, err := firebaseApp.Messaging(ctx)
		if err != nil {
			return fmt.Errorf("firebase messaging: %w", err)
		}
		publishers = append(publishers, notify.NewPush(msgClient, cfg.Firebase.PushTopicPrefix, log))
	}

	userSvc := user.NewService(userStore, locker)

	rates := pricing.DefaultRates()
	rates.Currency = cfg.Pricing.Currency
	pricingSvc := pricing.NewService(rates, cfg.PricingLocation())

	var (
		payments ride.Payments
		fee      ride.CancellationFee
	)
	if cfg.Payments.StripeKey != "" {
		stripeClient := payment.NewStripeClient(cfg.Payments.StripeKey, cfg.Payments.Currency)
		payments = stripeClient
		fee = payment.NewCancellationFee(stripeClient, userSvc,
			types.Money{Amount: cfg.Payments.CancellationFeeCents, Currency: cfg.Pricing.Currency}, log)
	} else {
		log.Warn("RIDESHARE_STRIPE_SECRET_KEY not set; payments disabled")
	}

	var (
		geocoder location.Geocoder
		router   location.Router
	)
	if cfg.Maps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region)
		if err != nil {
			return err
		}
		geocoder, router = mapsClient, mapsClient
	}

	rideSvc := ride.NewService(ride.Deps{
		Store:           rideStore,
		Users:           userSvc,
		Ratings:         rating.NewService(userSvc, log),
		Pricing:         pricingSvc,
		Payments:        payments,
		CancellationFee: fee,
		Events:          publishers,
		Log:             log,
	})

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Rides:          rideSvc,
		Users:          userSvc,
		Matching:       matching.NewService(rideStore, log),
		Location:       location.NewService(location.DefaultPlaces, geocoder, router, log),
		Pricing:        pricingSvc,
		Hub:            hub,
		Verifier:       verifier,
		Log:            log,
		NearbyRadiusKm: cfg.Matching.RadiusKm,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

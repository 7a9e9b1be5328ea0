package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"atelier/config"
	"atelier/crm"
	"atelier/engine"
	"atelier/messaging"
	"atelier/session"
	"atelier/store"
	"atelier/www"
	"atelier/zonestate"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "atelier.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("atelier", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("atelier: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("atelier: redis not available (%v), running without cache", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Printf("atelier: redis connected (%s)", cfg.Redis.Address)
		defer redisClient.Close()
	}
	cancel()

	// Zone state cache
	zoneState := zonestate.NewManager(redisClient, cfg.Redis.TTL)

	// Station session
	sess, err := session.Load(db)
	if err != nil {
		log.Fatalf("load session: %v", err)
	}

	// CRM client
	crmClient := crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.Timeout, sess)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := crmClient.Ping(pingCtx); err == nil {
		log.Printf("atelier: CRM connected (%s)", cfg.CRM.BaseURL)
	} else {
		log.Printf("atelier: CRM not available (%v)", err)
	}
	pingCancel()

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("atelier: messaging connect failed (%v)", err)
	} else if cfg.Messaging.Backend != "none" {
		log.Printf("atelier: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		CRMClient:  crmClient,
		Session:    sess,
		ZoneState:  zoneState,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Outbox drainer (floor events to the broker)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("atelier: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("atelier: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("atelier: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("atelier: stopped")
}

// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"crypto/tls"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/ttbt-io/skorekeeper-live/backend"
	"github.com/ttbt-io/skorekeeper-live/backend/archive"
	"github.com/ttbt-io/skorekeeper-live/backend/events"
)

var (
	addr              = flag.String("addr", ":8080", "The TCP address to listen to")
	useMockAuth       = flag.Bool("use-mock-auth", false, "Use Mock Authentication. For testing purposes only.")
	debugMode         = flag.Bool("debug", false, "Enable debug mode")
	dataDir           = flag.String("data-dir", "data", "Directory for game and team data")
	tlsCert           = flag.String("tls-cert", "", "Path to main HTTP TLS certificate")
	tlsKey            = flag.String("tls-key", "", "Path to main HTTP TLS key")
	authCookieName    = flag.String("auth-cookie-name", "skorekeeper_auth", "Name of the cookie containing the JWT")
	authJWKSURL       = flag.String("auth-jwks-url", "", "URL of the JWKS endpoint used to verify auth tokens")
	bootstrapAdmin    = flag.String("admin", "", "Email of temporary admin user for bootstrapping access policy")
	regulationInnings = flag.Int("regulation-innings", -1, "Innings in a regulation game; 0 never ends a game automatically (default from SK_REGULATION_INNINGS)")
)

// main starts the web server and registers the API handlers.
func main() {
	flag.Parse()

	cfg, err := backend.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *regulationInnings >= 0 {
		cfg.RegulationInnings = *regulationInnings
	}

	var mainTLSCert *tls.Certificate
	if *tlsCert != "" && *tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(*tlsCert, *tlsKey)
		if err != nil {
			log.Fatalf("Failed to load main TLS cert/key: %v", err)
		}
		mainTLSCert = &cert
	}

	store, err := backend.OpenStorage(*dataDir, cfg.MasterKey)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, nats.MaxReconnects(-1))
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		log.Printf("Publishing plays to %s", cfg.NATSURL)
		publisher = nc
	}
	defer publisher.Close()

	var arch *archive.Store
	if cfg.ArchiveDB != "" {
		if arch, err = archive.Open(cfg.ArchiveDB); err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer arch.Close()
	}

	server, err := backend.StartServer(backend.Options{
		Addr:           *addr,
		Cert:           mainTLSCert,
		DataDir:        *dataDir,
		UseMockAuth:    *useMockAuth,
		Debug:          *debugMode,
		Storage:        store,
		AuthCookieName: *authCookieName,
		AuthJWKSURL:    *authJWKSURL,
		BootstrapAdmin: *bootstrapAdmin,
		Rules:          cfg.Rules(),
		Events:         publisher,
		Archive:        arch,
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	} else {
		log.Println("Gracefully stopped.")
	}
}

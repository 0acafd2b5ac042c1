/*
Point d'entrée du collecteur pour le pipeline d'événements d'apprentissage.

Ceci est le point d'entrée principal pour le binaire du collecteur (puits HTTP
de référence et API de lecture).
Construction: go build -o collector ./cmd/collector
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/agbruneau/learning-events/internal/collector"
	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/internal/logging"
)

// main charge la configuration, ouvre le stockage et le journal d'audit,
// puis sert l'API jusqu'au signal d'arrêt.
func main() {
	configPath := flag.String("config", os.Getenv("LEARNLOG_CONFIG"), "fichier de configuration YAML ou TOML")
	flag.Parse()

	// Charger la configuration
	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Erreur fatale lors du chargement de la configuration: %v", err)
	}
	logging.Init(appCfg.App.LogFormat, logging.ParseLevel(appCfg.App.LogLevel))
	cfg := collector.NewConfig(appCfg)

	// Créer et initialiser le collecteur
	col := collector.New(cfg)
	if err := col.Initialize(context.Background()); err != nil {
		log.Fatalf("Erreur fatale lors de l'initialisation: %v", err)
	}
	defer col.Close()

	fmt.Printf("🟢 Le collecteur écoute sur %s\n", cfg.Addr)
	fmt.Printf("💾 Événements stockés dans %s\n", cfg.DBPath)
	fmt.Printf("📋 Journal d'audit dans %s\n", cfg.AuditFile)
	if cfg.Kafka.Enabled {
		fmt.Printf("📥 Ingestion Kafka depuis %s/%s\n", cfg.Kafka.Broker, cfg.Kafka.Topic)
	}

	// Gérer les signaux d'arrêt
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	// Démarrer le collecteur dans une goroutine
	done := make(chan error, 1)
	go func() {
		done <- col.Run(context.Background())
	}()

	// Attendre un signal d'arrêt ou l'échec du serveur
	select {
	case <-sigchan:
		fmt.Println("\n⚠️ Signal d'arrêt reçu...")
	case err := <-done:
		if err != nil {
			fmt.Printf("❌ Le serveur s'est arrêté: %v\n", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.CollectorShutdownTimeout)
	defer cancel()
	if err := col.Stop(ctx); err != nil {
		fmt.Printf("⚠️ Arrêt incomplet: %v\n", err)
	}

	fmt.Println("🔴 Collecteur arrêté.")
}

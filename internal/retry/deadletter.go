package retry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/agbruneau/learning-events/pkg/models"
)

// FailedBatch représente un lot d'événements qui n'a pas pu être livré.
type FailedBatch struct {
	FailedAt  time.Time      `json:"failed_at"`  // L'heure de l'abandon.
	Attempts  int            `json:"attempts"`   // Le nombre de tentatives effectuées.
	LastError string         `json:"last_error"` // Le dernier message d'erreur rencontré.
	Events    []models.Event `json:"events"`     // Les événements non livrés, dans l'ordre.
}

// DeadLetterSpool écrit les lots non livrés dans un fichier JSON Lines afin
// qu'ils puissent être rejoués plus tard.
type DeadLetterSpool struct {
	file    *os.File
	encoder *json.Encoder
	enabled bool
	mu      sync.Mutex
	stats   SpoolStats
	now     func() time.Time
}

// SpoolStats contient des statistiques sur les opérations du spool.
type SpoolStats struct {
	BatchesSpooled int64     // Nombre de lots écrits.
	EventsSpooled  int64     // Nombre total d'événements écrits.
	WriteErrors    int64     // Nombre d'erreurs d'écriture.
	LastSpoolTime  time.Time // Heure de la dernière écriture réussie.
	LastErrorTime  time.Time // Heure de la dernière erreur.
}

// NewDeadLetterSpool ouvre (ou crée) le fichier de spool en mode ajout.
//
// Paramètres:
//   - path: Le chemin du fichier de spool.
//   - enabled: Booléen pour activer ou désactiver le spool.
//
// Retourne:
//   - *DeadLetterSpool: Une nouvelle instance initialisée.
//   - error: Une erreur si l'ouverture du fichier échoue.
func NewDeadLetterSpool(path string, enabled bool) (*DeadLetterSpool, error) {
	if !enabled {
		return &DeadLetterSpool{enabled: false, now: time.Now}, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("échec de l'ouverture du spool %s: %w", path, err)
	}

	return &DeadLetterSpool{
		file:    file,
		encoder: json.NewEncoder(file),
		enabled: true,
		now:     time.Now,
	}, nil
}

// Send écrit un lot échoué dans le spool. Un lot vide est ignoré.
//
// Paramètres:
//   - events: Les événements non livrés.
//   - attempts: Le nombre de tentatives effectuées avant l'abandon.
//   - lastErr: La dernière erreur rencontrée (peut être nil).
//
// Retourne:
//   - error: Une erreur si l'écriture échoue.
func (d *DeadLetterSpool) Send(events []models.Event, attempts int, lastErr error) error {
	if !d.enabled || len(events) == 0 {
		return nil
	}

	batch := FailedBatch{
		FailedAt: d.now().UTC(),
		Attempts: attempts,
		Events:   events,
	}
	if lastErr != nil {
		batch.LastError = lastErr.Error()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return errors.New("spool fermé")
	}
	if err := d.encoder.Encode(batch); err != nil {
		d.stats.WriteErrors++
		d.stats.LastErrorTime = d.now()
		return fmt.Errorf("échec de l'écriture dans le spool: %w", err)
	}

	d.stats.BatchesSpooled++
	d.stats.EventsSpooled += int64(len(events))
	d.stats.LastSpoolTime = d.now()
	return nil
}

// GetStats retourne les statistiques actuelles du spool.
func (d *DeadLetterSpool) GetStats() SpoolStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// IsEnabled retourne si le spool est activé.
func (d *DeadLetterSpool) IsEnabled() bool {
	return d.enabled
}

// Close synchronise et ferme le fichier de spool.
func (d *DeadLetterSpool) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	syncErr := d.file.Sync()
	closeErr := d.file.Close()
	d.file = nil
	d.encoder = nil
	return errors.Join(syncErr, closeErr)
}

// ReadSpool relit tous les lots d'un fichier de spool, dans l'ordre d'écriture.
// Un fichier absent donne une liste vide.
func ReadSpool(path string) ([]FailedBatch, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("échec de l'ouverture du spool %s: %w", path, err)
	}
	defer file.Close()

	var batches []FailedBatch
	dec := json.NewDecoder(file)
	for {
		var b FailedBatch
		if err := dec.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return batches, nil
			}
			return batches, fmt.Errorf("ligne %d du spool illisible: %w", len(batches)+1, err)
		}
		batches = append(batches, b)
	}
}

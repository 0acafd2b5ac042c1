/*
Package retry fournit une logique de relance avec un backoff exponentiel,
ainsi qu'un spool de lettres mortes pour les lots d'événements qui n'ont
pas pu être livrés.
*/
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config contient la configuration pour le mécanisme de relance.
type Config struct {
	MaxAttempts  int           // Nombre maximum de tentatives (incluant la première).
	InitialDelay time.Duration // Délai initial avant la première relance.
	MaxDelay     time.Duration // Délai maximum entre les relances.
	Multiplier   float64       // Multiplicateur pour le backoff exponentiel.
}

// DefaultConfig retourne une configuration de relance par défaut.
//
// Retourne:
//   - Config: La structure de configuration initialisée avec des valeurs standards.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// normalize corrige les valeurs hors bornes afin que Do exécute toujours fn au moins une fois.
func (c Config) normalize() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	if c.MaxDelay > 0 && c.InitialDelay > c.MaxDelay {
		c.InitialDelay = c.MaxDelay
	}
	return c
}

// PermanentError enveloppe une erreur pour indiquer qu'elle ne doit pas être retentée.
type PermanentError struct {
	Err error
}

// Error retourne le message d'erreur de l'erreur enveloppée.
func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap retourne l'erreur sous-jacente.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent enveloppe une erreur pour indiquer qu'elle ne doit pas être retentée.
//
// Paramètres:
//   - err: L'erreur à envelopper.
//
// Retourne:
//   - error: Une erreur de type PermanentError, ou nil si err est nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent vérifie si une erreur est marquée comme permanente.
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Result contient le résultat d'une opération de relance.
type Result struct {
	Attempts int           // Nombre de tentatives effectuées.
	Duration time.Duration // Durée totale de toutes les tentatives.
	Err      error         // Erreur finale (nil si succès).
}

// Do exécute la fonction donnée avec une logique de relance.
// La fonction est relancée jusqu'à ce qu'elle réussisse, retourne une erreur permanente,
// ou que le nombre maximum de tentatives soit atteint. La fonction reçoit le contexte
// afin de pouvoir abandonner une tentative en cours.
//
// Paramètres:
//   - ctx: Le contexte pour l'annulation et les délais.
//   - cfg: La configuration de relance.
//   - fn: La fonction à exécuter, retournant une erreur.
//
// Retourne:
//   - Result: Le résultat contenant le nombre de tentatives, la durée et l'erreur finale.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) Result {
	return DoWithCallback(ctx, cfg, fn, nil)
}

// DoWithCallback est comme Do mais appelle le callback fourni après chaque tentative échouée
// qui sera suivie d'une relance. Utile pour la journalisation ou les métriques.
//
// Paramètres:
//   - ctx: Le contexte pour l'annulation.
//   - cfg: La configuration de relance.
//   - fn: La fonction à exécuter.
//   - onRetry: Reçoit le numéro de tentative, l'erreur et le prochain délai. Peut être nil.
//
// Retourne:
//   - Result: Le résultat de l'opération.
func DoWithCallback(ctx context.Context, cfg Config, fn func(ctx context.Context) error, onRetry func(attempt int, err error, nextDelay time.Duration)) Result {
	cfg = cfg.normalize()
	start := time.Now()
	done := func(attempt int, err error) Result {
		return Result{Attempts: attempt, Duration: time.Since(start), Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Vérification de l'annulation du contexte
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return done(attempt-1, errors.Join(lastErr, err))
			}
			return done(attempt, err)
		}

		err := fn(ctx)
		if err == nil {
			return done(attempt, nil)
		}
		lastErr = err

		// Ne pas relancer les erreurs permanentes
		if IsPermanent(err) {
			return done(attempt, err)
		}

		// Ne pas dormir après la dernière tentative
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := calculateDelay(attempt, cfg)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
		if !sleep(ctx, delay) {
			return done(attempt, errors.Join(lastErr, ctx.Err()))
		}
	}

	return done(cfg.MaxAttempts, lastErr)
}

// sleep attend le délai ou l'annulation du contexte. Retourne faux si le contexte est annulé.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// calculateDelay calcule le délai pour une tentative donnée en utilisant un backoff exponentiel avec jitter.
//
// Paramètres:
//   - attempt: Le numéro de la tentative actuelle.
//   - cfg: La configuration de relance.
//
// Retourne:
//   - time.Duration: La durée à attendre avant la prochaine tentative.
func calculateDelay(attempt int, cfg Config) time.Duration {
	// Calcul du délai exponentiel
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))

	// Plafonnement au délai maximum
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	// Ajout du jitter (±25%)
	jitter := delay * 0.25 * (rand.Float64()*2 - 1)
	delay += jitter

	return time.Duration(delay)
}

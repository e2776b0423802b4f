package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicasonrisas/citas-backend/internal/auth"
	"github.com/clinicasonrisas/citas-backend/internal/config"
	"github.com/clinicasonrisas/citas-backend/internal/db"
)

// The simulator hammers the booking endpoint with many patients competing for
// a small set of slots, to observe how many bookings land (201) versus how
// many are rejected by the slot uniqueness constraint (409).

type simConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	PatientLimit int
	SlotDays     int
	PostgresDSN  string
	JWTSecret    string
}

type dataPool struct {
	PatientTokens []string
	MedicoIDs     []int64
	ServicioIDs   []int64
	Fechas        []string
	Horas         []string
}

type counters struct {
	Total    int64
	Booked   int64
	Conflict int64
	Rejected int64
	Errors   int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadSimConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 5)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	pool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d medicos, %d servicios, %d slots",
		len(pool.PatientTokens), len(pool.MedicoIDs), len(pool.ServicioIDs),
		len(pool.Fechas)*len(pool.Horas)*len(pool.MedicoIDs))

	var c counters
	client := &http.Client{Timeout: 10 * time.Second}

	runCtx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	log.Printf("running for %s with %d workers", cfg.Duration, cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(runCtx, client, cfg, pool, &c, workerID)
		}(i)
	}
	wg.Wait()

	printReport(&c)
}

func worker(ctx context.Context, client *http.Client, cfg simConfig, pool *dataPool, c *counters, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		token := pool.PatientTokens[rng.Intn(len(pool.PatientTokens))]
		medicoID := pool.MedicoIDs[rng.Intn(len(pool.MedicoIDs))]

		body, _ := json.Marshal(map[string]any{
			"fecha":       pool.Fechas[rng.Intn(len(pool.Fechas))],
			"hora":        pool.Horas[rng.Intn(len(pool.Horas))],
			"id_servicio": pool.ServicioIDs[rng.Intn(len(pool.ServicioIDs))],
			"id_medico":   medicoID,
		})

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			cfg.APIBaseURL+"/api/citas/agendar", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		atomic.AddInt64(&c.Total, 1)
		if err != nil {
			if ctx.Err() == nil {
				atomic.AddInt64(&c.Errors, 1)
			}
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			atomic.AddInt64(&c.Booked, 1)
		case http.StatusConflict:
			atomic.AddInt64(&c.Conflict, 1)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			atomic.AddInt64(&c.Rejected, 1)
		default:
			atomic.AddInt64(&c.Errors, 1)
		}
	}
}

func loadSimConfig() simConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("load base config: %v", err)
	}

	return simConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 100),
		SlotDays:     getInt("SIM_SLOT_DAYS", 3),
		PostgresDSN:  baseCfg.PostgresDSN,
		JWTSecret:    baseCfg.JWTSecret,
	}
}

func loadDataPool(ctx context.Context, pgPool *pgxpool.Pool, cfg simConfig) (*dataPool, error) {
	pool := &dataPool{}

	rows, err := pgPool.Query(ctx, `
		SELECT auth0_id FROM usuarios WHERE rol = 'Paciente' LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load pacientes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			return nil, err
		}
		token, err := auth.BuildToken(cfg.JWTSecret, sub, time.Hour)
		if err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
		pool.PatientTokens = append(pool.PatientTokens, token)
	}

	rows, err = pgPool.Query(ctx, `SELECT id_medico FROM medicos`)
	if err != nil {
		return nil, fmt.Errorf("load medicos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		pool.MedicoIDs = append(pool.MedicoIDs, id)
	}

	rows, err = pgPool.Query(ctx, `SELECT id_servicio FROM servicios`)
	if err != nil {
		return nil, fmt.Errorf("load servicios: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		pool.ServicioIDs = append(pool.ServicioIDs, id)
	}

	if len(pool.PatientTokens) == 0 {
		return nil, fmt.Errorf("no pacientes loaded; run cmd/seed first")
	}
	if len(pool.MedicoIDs) == 0 {
		return nil, fmt.Errorf("no medicos loaded; run cmd/seed first")
	}
	if len(pool.ServicioIDs) == 0 {
		return nil, fmt.Errorf("no servicios loaded; run cmd/seed first")
	}

	// A deliberately small slot grid so bookings collide often.
	start := time.Now().AddDate(0, 0, 14)
	for d := 0; d < cfg.SlotDays; d++ {
		pool.Fechas = append(pool.Fechas, start.AddDate(0, 0, d).Format("2006-01-02"))
	}
	pool.Horas = []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}

	return pool, nil
}

func printReport(c *counters) {
	total := atomic.LoadInt64(&c.Total)
	booked := atomic.LoadInt64(&c.Booked)
	conflict := atomic.LoadInt64(&c.Conflict)
	rejected := atomic.LoadInt64(&c.Rejected)
	errs := atomic.LoadInt64(&c.Errors)

	fmt.Println("\nSIMULATION REPORT")
	fmt.Printf("Total requests: %d\n", total)
	if total == 0 {
		return
	}
	fmt.Printf("  Booked (201):    %d (%.1f%%)\n", booked, pct(booked, total))
	fmt.Printf("  Conflicts (409): %d (%.1f%%)\n", conflict, pct(conflict, total))
	fmt.Printf("  Rejected (4xx):  %d (%.1f%%)\n", rejected, pct(rejected, total))
	fmt.Printf("  Errors:          %d (%.1f%%)\n", errs, pct(errs, total))
}

func pct(n, total int64) float64 {
	return float64(n) / float64(total) * 100
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

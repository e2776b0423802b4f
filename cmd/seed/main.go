package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicasonrisas/citas-backend/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 5)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Bootstrap(context.Background(), pool); err != nil {
		log.Fatalf("bootstrap schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedServicios(context.Background(), pool); err != nil {
		log.Fatalf("seed servicios: %v", err)
	}
	if err := seedMedicos(context.Background(), pool, 10); err != nil {
		log.Fatalf("seed medicos: %v", err)
	}
	if err := seedPacientes(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed pacientes: %v", err)
	}

	log.Println("seed complete")
}

func seedServicios(ctx context.Context, pool *pgxpool.Pool) error {
	catalogo := []struct {
		nombre      string
		descripcion string
		duracionMin int
		costo       float64
	}{
		{"Limpieza dental", "Profilaxis y eliminación de sarro", 30, 450},
		{"Consulta de valoración", "Revisión general y plan de tratamiento", 30, 300},
		{"Resina dental", "Restauración con resina de un órgano dental", 45, 900},
		{"Extracción simple", "Extracción de pieza dental sin cirugía", 45, 1100},
		{"Endodoncia", "Tratamiento de conductos", 60, 3500},
		{"Blanqueamiento", "Blanqueamiento dental en consultorio", 60, 2500},
		{"Ortodoncia (consulta)", "Valoración y ajuste de aparatología", 30, 600},
		{"Corona dental", "Toma de impresión y colocación de corona", 60, 4500},
	}

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM servicios`).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		log.Printf("servicios already present (%d), skipping", existing)
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range catalogo {
		_, err := tx.Exec(ctx, `
			INSERT INTO servicios (nombre, descripcion, duracion_min, costo)
			VALUES ($1, $2, $3, $4)
		`, s.nombre, s.descripcion, s.duracionMin, s.costo)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("servicios seeded: %d", len(catalogo))
	return nil
}

func seedMedicos(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d medicos", count)

	especialidades := []string{
		"Odontología general",
		"Ortodoncia",
		"Endodoncia",
		"Periodoncia",
		"Cirugía maxilofacial",
		"Odontopediatría",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		nombre := gofakeit.FirstName()
		apellido := gofakeit.LastName()
		sub := fmt.Sprintf("seed|medico|%s", gofakeit.UUID())

		var idUsuario int64
		err := tx.QueryRow(ctx, `
			INSERT INTO usuarios (auth0_id, rol) VALUES ($1, 'Medico')
			RETURNING id_usuario
		`, sub).Scan(&idUsuario)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO medicos (id_medico, nombre, apellido, especialidad, telefono, correo)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, idUsuario, nombre, apellido,
			especialidades[gofakeit.Number(0, len(especialidades)-1)],
			gofakeit.Phone(), gofakeit.Email())
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("medicos seeded")
	return nil
}

func seedPacientes(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d pacientes", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			sub := fmt.Sprintf("seed|paciente|%s", gofakeit.UUID())
			nacimiento := gofakeit.DateRange(
				time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			var idUsuario int64
			err := tx.QueryRow(ctx, `
				INSERT INTO usuarios (auth0_id, rol) VALUES ($1, 'Paciente')
				RETURNING id_usuario
			`, sub).Scan(&idUsuario)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO pacientes (id_paciente, nombre, apellido, fecha_nacimiento, telefono, correo, direccion)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, idUsuario, gofakeit.FirstName(), gofakeit.LastName(), nacimiento,
				gofakeit.Phone(), gofakeit.Email(), gofakeit.Street())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("pacientes seeded: %d/%d", end, count)
	}

	log.Println("pacientes seeded")
	return nil
}

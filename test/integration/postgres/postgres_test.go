//go:build integration

// Package postgres_test runs the store conformance suite against a real
// PostgreSQL server instead of SQLite, since GORM hides dialect
// differences only up to a point.
package postgres_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/zkauth/pkg/store"
	"github.com/marmos91/zkauth/pkg/store/sqlstore"
	"github.com/marmos91/zkauth/pkg/store/storetest"
)

type pgServer struct {
	host     string
	port     int
	user     string
	password string
	admin    string
}

var dbSeq atomic.Int64

// startPostgres starts a PostgreSQL container, or connects to an external
// server named by POSTGRES_HOST. The container image pull can be slow on
// first run, hence the generous deadline.
func startPostgres(t *testing.T) *pgServer {
	t.Helper()
	ctx := context.Background()

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		port := 5432
		if p := os.Getenv("POSTGRES_PORT"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil {
				port = parsed
			}
		}
		user := os.Getenv("POSTGRES_USER")
		if user == "" {
			user = "zkauth"
		}
		password := os.Getenv("POSTGRES_PASSWORD")
		if password == "" {
			password = "zkauth"
		}
		return &pgServer{host: host, port: port, user: user, password: password, admin: "postgres"}
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("zkauth_test"),
		tcpostgres.WithUsername("zkauth"),
		tcpostgres.WithPassword("zkauth"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return &pgServer{
		host:     host,
		port:     port.Int(),
		user:     "zkauth",
		password: "zkauth",
		admin:    "zkauth_test",
	}
}

// freshDatabase creates a uniquely named database so every factory call in
// the conformance suite starts from an empty schema.
func (s *pgServer) freshDatabase(t *testing.T) string {
	t.Helper()

	name := fmt.Sprintf("zkauth_conf_%d_%d", os.Getpid(), dbSeq.Add(1))
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		s.host, s.port, s.user, s.password, s.admin)

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect for database creation: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := db.Exec("CREATE DATABASE " + name).Error; err != nil {
		t.Fatalf("failed to create database %s: %v", name, err)
	}
	return name
}

func TestConformance(t *testing.T) {
	srv := startPostgres(t)

	storetest.RunConformanceSuite(t, func(t *testing.T) store.Store {
		cfg := &store.Config{
			Type: store.DatabaseTypePostgres,
			Postgres: store.PostgresConfig{
				Host:     srv.host,
				Port:     srv.port,
				Database: srv.freshDatabase(t),
				User:     srv.user,
				Password: srv.password,
				SSLMode:  "disable",
			},
		}
		s, err := sqlstore.New(cfg)
		if err != nil {
			t.Fatalf("sqlstore.New() failed: %v", err)
		}
		t.Cleanup(func() {
			s.Close()
		})
		return s
	})
}

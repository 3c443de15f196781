package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"goinventory/config"
	"goinventory/internal/pkg/database"
	"goinventory/internal/repository/devicerepo"
)

// Executa comandos goose (up, down, status, ...) sobre as migrações embutidas em devicerepo.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: .env não encontrado. Usando apenas o ambiente do sistema: %v", err)
	}

	cfg := config.LoadConfig()

	verbose := flag.Bool("v", false, "exibe o log do goose")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL, database.PoolConfig{ConnectTimeout: cfg.DBConnectTimeout})
	if err != nil {
		log.Fatalf("goose: DATABASE_URL inválida: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: falha ao fechar o banco: %v\n", err)
		}
	}()

	goose.SetBaseFS(devicerepo.MigrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: %v", err)
	}
	if !*verbose {
		goose.SetLogger(goose.NopLogger())
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	if err := goose.Run(command, db, devicerepo.MigrationsDir, arguments[1:]...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s concluído\n", command)
}

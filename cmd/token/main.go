package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"goinventory/config"
	"goinventory/internal/pkg/middleware"
	"goinventory/internal/pkg/token"
)

// Emite um JWT para as rotas de escrita, assinado com JWT_SECRET_KEY.
func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	subject := flag.String("subject", "operator", "identificação de quem usa o token")
	role := flag.String("role", middleware.RoleOperator, "papel: admin ou operator")
	flag.Parse()

	if !cfg.AuthEnabled() {
		log.Fatal("JWT_SECRET_KEY não definida: a autenticação está desativada.")
	}
	if *role != middleware.RoleAdmin && *role != middleware.RoleOperator {
		log.Fatalf("papel inválido: %q", *role)
	}

	signed, err := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatalf("falha ao assinar token: %v", err)
	}
	fmt.Println(signed)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"goinventory/config"
	"goinventory/internal/pkg/cache"
	"goinventory/internal/pkg/database"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/metrics"
	"goinventory/internal/pkg/middleware"
	"goinventory/internal/pkg/photostore"
	"goinventory/internal/pkg/token"

	// Camadas do inventário para Injeção de Dependências
	"goinventory/internal/api/device"
	"goinventory/internal/api/health"
	"goinventory/internal/api/router"
	"goinventory/internal/repository/devicecache"
	"goinventory/internal/repository/devicerepo"
	"goinventory/internal/service/deviceservice"
)

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// A ausência do .env não é erro: em contêiner tudo vem do ambiente.
	envErr := godotenv.Load()

	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	if err := cfg.ApplyFlags(os.Args[1:]); err != nil {
		log.Fatal("Flags de linha de comando inválidas.", err)
	}
	if envErr != nil {
		log.Debug("Arquivo .env não encontrado. Usando apenas o ambiente do sistema.", nil)
	}
	log.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "cache_dir": cfg.CacheDir})

	// 1. Cache local e fotos. Sem eles não há fallback: falha fatal.
	photos, err := photostore.NewManager(cfg.CacheDir)
	if err != nil {
		log.Fatal("Falha ao preparar o diretório de fotos.", err)
	}
	cacheStore, err := devicecache.NewStore(cfg.CacheDir, log)
	if err != nil {
		log.Fatal("Falha ao preparar o cache local.", err)
	}
	log.Info("Cache local carregado.", map[string]interface{}{"records": cacheStore.Len()})

	// 2. Banco de Dados (PostgreSQL). Indisponível na subida = modo degradado.
	db, err := database.NewPostgresDB(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdle,
		ConnectTimeout:  cfg.DBConnectTimeout,
	})
	if err != nil {
		log.Fatal("DATABASE_URL inválida.", err)
	}
	defer db.Close()

	deviceRepo := devicerepo.NewDeviceRepository(db, cfg.DBTimeout, log)
	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.DBTimeout)
	if err := deviceRepo.Bootstrap(startCtx); err != nil {
		log.Warn("PostgreSQL indisponível na inicialização. Operando a partir do cache.", map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("Conexão PostgreSQL estabelecida.", nil)
	}
	cancelStart()

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Router de fallback -> Service -> Handler
	recorder := metrics.NewRecorder()
	fallbackRouter := deviceservice.NewFallbackRouter(deviceRepo, cacheStore, recorder, log)
	deviceSvc := deviceservice.NewService(fallbackRouter, photos, log)
	deviceHandler := device.NewHandler(deviceSvc, log, cfg.MaxPhotoBytes)
	healthHandler := health.NewHandler(deviceRepo, cacheStore)
	log.Debug("Camadas do inventário inicializadas.", nil)

	deps := router.Deps{
		Device:  deviceHandler,
		Health:  healthHandler,
		Metrics: recorder.Handler(),
		Logger:  log,
	}

	// 4. Rate limiting (Redis), opcional.
	if cfg.RateLimitEnabled() {
		cacheClient := cache.NewRedisClient(cfg.RedisAddr)
		defer cacheClient.Close()
		deps.RateLimit = middleware.RateLimiter(cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, log)
		log.Info("Rate limiting ativado.", map[string]interface{}{"redis": cfg.RedisAddr, "limit": cfg.RateLimitMaxRequests})
	}

	// 5. Autenticação JWT das rotas de escrita, opcional.
	if cfg.AuthEnabled() {
		tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
		deps.Auth = middleware.NewAuthMiddleware(tokenSvc)
		log.Info("Autenticação JWT ativada para rotas de escrita.", nil)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 6. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor goinventory ouvindo.", map[string]interface{}{"addr": cfg.Addr()})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}

package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig agrupa os limites do pool de conexões. Valores zero usam os padrões.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout limita cada tentativa de conexão (parâmetro connect_timeout do lib/pq).
	ConnectTimeout time.Duration
}

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = 20
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = 10
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = 5 * time.Minute
	}
	if p.ConnMaxIdleTime <= 0 {
		p.ConnMaxIdleTime = 30 * time.Second
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = 5 * time.Second
	}
	return p
}

// NewPostgresDB abre e configura o pool de conexões com o PostgreSQL.
// Não faz ping: o serviço precisa subir mesmo com o banco fora do ar,
// e as operações passam a usar o cache até o banco voltar.
func NewPostgresDB(dataSourceName string, pool PoolConfig) (*sql.DB, error) {
	pool = pool.withDefaults()

	dsn, err := withConnectTimeout(dataSourceName, pool.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("DSN inválida: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir a conexão com o DB: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	return db, nil
}

// withConnectTimeout acrescenta connect_timeout (em segundos, mínimo 1) à DSN,
// no formato URL ou chave=valor, preservando um valor já informado.
func withConnectTimeout(dsn string, timeout time.Duration) (string, error) {
	seconds := int(timeout.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		if q.Get("connect_timeout") == "" {
			q.Set("connect_timeout", strconv.Itoa(seconds))
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if strings.Contains(dsn, "connect_timeout=") {
		return dsn, nil
	}
	return strings.TrimSpace(dsn + " connect_timeout=" + strconv.Itoa(seconds)), nil
}

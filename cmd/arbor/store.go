package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/spf13/cobra"
)

// Environment variables holding base64 AES-256 keys. Fallback keys are comma separated.
const (
	envEncryptionKey = "ARBOR_ENCRYPTION_KEY"
	envFallbackKeys = "ARBOR_ENCRYPTION_FALLBACK_KEYS"
)

type storeHandle struct {
	store  ports.LocationStore
	locker ports.DistributedLocker
	close  func()
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("store-dir", file.DefaultBasePath, "Directory where locations are persisted")
	cmd.PersistentFlags().String("redis", "", "Persist locations in Redis at this address instead")
	cmd.PersistentFlags().String("redis-prefix", redis.DefaultPrefix, "Key prefix of the Redis store")
	cmd.PersistentFlags().StringArray("mask-param", nil, "Mask params matching this regexp before saving (repeatable)")
}

// resolveStore builds the store selected by the flags, wrapped with the
// masking and encryption middlewares they ask for. The locker is only set for Redis.
func resolveStore(cmd *cobra.Command) (*storeHandle, error) {
	h := &storeHandle{close: func() {}}

	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		prefix, _ := cmd.Flags().GetString("redis-prefix")
		rs := redis.New(addr, "", 0, redis.WithPrefix(prefix))
		h.store = rs
		h.locker = redis.NewLocker(rs.Client(), prefix)
		h.close = func() { _ = rs.Close() }
	} else {
		dir, _ := cmd.Flags().GetString("store-dir")
		h.store = file.NewStore(dir)
	}

	var mws []middleware.Middleware
	if patterns, _ := cmd.Flags().GetStringArray("mask-param"); len(patterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(patterns...)
		if err != nil {
			h.close()
			return nil, err
		}
		mws = append(mws, pii)
	}
	enc, err := encryptionFromEnv()
	if err != nil {
		h.close()
		return nil, err
	}
	if enc != nil {
		mws = append(mws, enc)
	}
	h.store = middleware.Chain(h.store, mws...)
	return h, nil
}

func openStore(cmd *cobra.Command) (ports.LocationStore, func(), error) {
	h, err := resolveStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	return h.store, h.close, nil
}

func encryptionFromEnv() (middleware.Middleware, error) {
	raw := os.Getenv(envEncryptionKey)
	if raw == "" {
		return nil, nil
	}
	active, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envEncryptionKey, err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range strings.Split(os.Getenv(envFallbackKeys), ",") {
		if k = strings.TrimSpace(k); k == "" {
			continue
		}
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envFallbackKeys, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}

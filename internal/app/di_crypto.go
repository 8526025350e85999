package app

import (
	"context"
	"fmt"

	"github.com/allisson/phiguard/internal/config"
	cryptoDomain "github.com/allisson/phiguard/internal/crypto/domain"
	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
	keysRepository "github.com/allisson/phiguard/internal/keys/repository"
	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyWrapper returns the KMS-backed wrapper protecting key material at rest.
func (c *Container) KeyWrapper() (*cryptoService.KeeperWrapper, error) {
	err := c.lazy(&c.keyWrapperInit, "keyWrapper", func() error {
		if c.config.KMSKeyURI == "" {
			return fmt.Errorf("%w: KMS_KEY_URI is required", cryptoDomain.ErrConfiguration)
		}
		keeper, err := c.KMSService().OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			return fmt.Errorf("%w: %w", cryptoDomain.ErrConfiguration, err)
		}
		c.keyWrapper = cryptoService.NewKeeperWrapper(keeper)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.keyWrapper, nil
}

// KeyStore returns the key store selected by KEY_STORE.
func (c *Container) KeyStore() (keysUsecase.KeyStore, error) {
	err := c.lazy(&c.keyStoreInit, "keyStore", func() error {
		var err error
		c.keyStore, err = c.initKeyStore()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.keyStore, nil
}

// KeyManager returns the key manager. The key ring is empty until Load is called.
func (c *Container) KeyManager() (keysUsecase.KeyManager, error) {
	err := c.lazy(&c.keyManagerInit, "keyManager", func() error {
		var err error
		c.keyManager, err = c.initKeyManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.keyManager, nil
}

// CipherEngine returns the envelope cipher engine bound to the key manager.
func (c *Container) CipherEngine() (*cryptoService.CipherEngine, error) {
	err := c.lazy(&c.cipherEngineInit, "cipherEngine", func() error {
		keyManager, err := c.KeyManager()
		if err != nil {
			return fmt.Errorf("failed to get key manager for cipher engine: %w", err)
		}
		c.cipherEngine = cryptoService.NewCipherEngine(c.AEADManager(), keyManager)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.cipherEngine, nil
}

// initKeyStore creates the key store. SQL stores wrap key material with the KMS keeper.
func (c *Container) initKeyStore() (keysUsecase.KeyStore, error) {
	if c.config.KeyStore == config.KeyStoreMemory {
		c.Logger().Warn("using in-memory key store, keys are lost on restart")
		return keysRepository.NewMemoryKeyStore(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key store: %w", err)
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key store: %w", err)
	}
	wrapper, err := c.KeyWrapper()
	if err != nil {
		return nil, fmt.Errorf("failed to get key wrapper for key store: %w", err)
	}

	switch c.config.KeyStore {
	case config.KeyStorePostgres:
		return keysRepository.NewPostgreSQLKeyStore(db, txManager, wrapper), nil
	case config.KeyStoreMySQL:
		return keysRepository.NewMySQLKeyStore(db, txManager, wrapper), nil
	default:
		return nil, fmt.Errorf("unsupported key store: %s", c.config.KeyStore)
	}
}

// initKeyManager creates the key manager, wrapped with metrics when enabled.
func (c *Container) initKeyManager() (keysUsecase.KeyManager, error) {
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.EncryptionAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrConfiguration, err)
	}

	store, err := c.KeyStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get key store for key manager: %w", err)
	}

	keyManager := keysUsecase.NewKeyManager(store, keysUsecase.KeyManagerConfig{
		Algorithm:            algorithm,
		RotationIntervalDays: c.config.KeyRotationIntervalDays,
		AllowUnverifiedPurge: c.config.KeyPurgeAllowUnverified,
	}, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key manager: %w", err)
		}
		return keysUsecase.NewKeyManagerWithMetrics(keyManager, businessMetrics), nil
	}

	return keyManager, nil
}

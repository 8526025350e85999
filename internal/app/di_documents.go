package app

import (
	"fmt"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
	documentHTTP "github.com/allisson/phiguard/internal/document/http"
	documentService "github.com/allisson/phiguard/internal/document/service"
	documentUsecase "github.com/allisson/phiguard/internal/document/usecase"
	keysHTTP "github.com/allisson/phiguard/internal/keys/http"
)

// FieldWalker returns the document field walker over the default sensitive fields.
func (c *Container) FieldWalker() (*documentService.DocumentFieldWalker, error) {
	err := c.lazy(&c.fieldWalkerInit, "fieldWalker", func() error {
		engine, err := c.CipherEngine()
		if err != nil {
			return fmt.Errorf("failed to get cipher engine for field walker: %w", err)
		}
		c.fieldWalker, err = documentService.NewDocumentFieldWalker(
			engine,
			documentDomain.DefaultSensitiveFields(),
			c.Logger(),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.fieldWalker, nil
}

// Classifier returns the sensitivity classifier. Configured paths and keywords
// extend the defaults.
func (c *Container) Classifier() (*documentService.SensitivityClassifier, error) {
	err := c.lazy(&c.classifierInit, "classifier", func() error {
		paths := append(documentService.DefaultProtectedPaths(), c.config.ProtectedPaths...)
		keywords := append(documentService.DefaultPHIKeywords(), c.config.PHIKeywords...)

		var err error
		c.classifier, err = documentService.NewSensitivityClassifier(paths, keywords)
		if err != nil {
			return fmt.Errorf("failed to create sensitivity classifier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.classifier, nil
}

// DocumentUseCase returns the document use case, wrapped with metrics when enabled.
func (c *Container) DocumentUseCase() (documentUsecase.DocumentUseCase, error) {
	err := c.lazy(&c.documentUseCaseInit, "documentUseCase", func() error {
		var err error
		c.documentUseCase, err = c.initDocumentUseCase()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.documentUseCase, nil
}

// DocumentHandler returns the document HTTP handler.
func (c *Container) DocumentHandler() (*documentHTTP.DocumentHandler, error) {
	err := c.lazy(&c.documentHandlerInit, "documentHandler", func() error {
		useCase, err := c.DocumentUseCase()
		if err != nil {
			return fmt.Errorf("failed to get document use case for document handler: %w", err)
		}
		c.documentHandler = documentHTTP.NewDocumentHandler(useCase, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.documentHandler, nil
}

// KeyHandler returns the key administration HTTP handler.
func (c *Container) KeyHandler() (*keysHTTP.KeyHandler, error) {
	err := c.lazy(&c.keyHandlerInit, "keyHandler", func() error {
		keyManager, err := c.KeyManager()
		if err != nil {
			return fmt.Errorf("failed to get key manager for key handler: %w", err)
		}
		c.keyHandler = keysHTTP.NewKeyHandler(keyManager, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.keyHandler, nil
}

func (c *Container) initDocumentUseCase() (documentUsecase.DocumentUseCase, error) {
	walker, err := c.FieldWalker()
	if err != nil {
		return nil, fmt.Errorf("failed to get field walker for document use case: %w", err)
	}

	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for document use case: %w", err)
	}

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for document use case: %w", err)
	}

	baseUseCase := documentUsecase.NewDocumentUseCase(walker, classifier, keyManager)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for document use case: %w", err)
		}
		return documentUsecase.NewDocumentUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

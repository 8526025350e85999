package usecase

import (
	"context"
	"time"

	documentDomain "github.com/allisson/phiguard/internal/document/domain"
	"github.com/allisson/phiguard/internal/metrics"
)

// documentUseCaseWithMetrics decorates DocumentUseCase with metrics instrumentation.
type documentUseCaseWithMetrics struct {
	next    DocumentUseCase
	metrics metrics.BusinessMetrics
}

// NewDocumentUseCaseWithMetrics wraps a DocumentUseCase with metrics recording.
func NewDocumentUseCaseWithMetrics(useCase DocumentUseCase, m metrics.BusinessMetrics) DocumentUseCase {
	return &documentUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *documentUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	report *documentDomain.WalkReport,
	err error,
) {
	status := "success"
	if err != nil {
		status = "error"
	}

	d.metrics.RecordOperation(ctx, "documents", operation, status)
	d.metrics.RecordDuration(ctx, "documents", operation, time.Since(start), status)
	if report != nil {
		d.metrics.RecordFields(ctx, operation, report.Processed, report.Failed)
	}
}

// Protect records metrics for document protection.
func (d *documentUseCaseWithMetrics) Protect(
	ctx context.Context,
	doc any,
	encryptionCtx documentDomain.EncryptionContext,
) (*documentDomain.ProtectedDocument, error) {
	start := time.Now()
	result, err := d.next.Protect(ctx, doc, encryptionCtx)

	var report *documentDomain.WalkReport
	if result != nil {
		report = &result.Report
	}
	d.record(ctx, "document_protect", start, report, err)
	return result, err
}

// Reveal records metrics for document decryption.
func (d *documentUseCaseWithMetrics) Reveal(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	start := time.Now()
	result, err := d.next.Reveal(ctx, doc)

	var report *documentDomain.WalkReport
	if result != nil {
		report = &result.Report
	}
	d.record(ctx, "document_reveal", start, report, err)
	return result, err
}

// Rewrap records metrics for document re-encryption.
func (d *documentUseCaseWithMetrics) Rewrap(ctx context.Context, doc any) (*documentDomain.TransformedDocument, error) {
	start := time.Now()
	result, err := d.next.Rewrap(ctx, doc)

	var report *documentDomain.WalkReport
	if result != nil {
		report = &result.Report
	}
	d.record(ctx, "document_rewrap", start, report, err)
	return result, err
}

package llm

import (
	"context"
	"time"
)

// AuditLogger receives one entry per LLM call. Matches the application
// logger's signature so an isolated file logger can be plugged in directly.
type AuditLogger interface {
	Info(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type auditedProvider struct {
	inner LLMProvider
	log   AuditLogger
}

// WithAudit wraps a provider so every call is recorded with its duration and
// outcome.
func WithAudit(inner LLMProvider, log AuditLogger) LLMProvider {
	if log == nil {
		return inner
	}
	return &auditedProvider{inner: inner, log: log}
}

func (p *auditedProvider) Chat(ctx context.Context, messages []Message, opts ...Option) (string, error) {
	start := time.Now()
	out, err := p.inner.Chat(ctx, messages, opts...)
	p.record("chat", start, len(out), err)
	return out, err
}

func (p *auditedProvider) Generate(ctx context.Context, prompt string, opts ...Option) (string, error) {
	start := time.Now()
	out, err := p.inner.Generate(ctx, prompt, opts...)
	p.record("generate", start, len(out), err)
	return out, err
}

func (p *auditedProvider) GenerateStream(ctx context.Context, prompt string, fn StreamFunc, opts ...Option) (string, error) {
	start := time.Now()
	out, err := p.inner.GenerateStream(ctx, prompt, fn, opts...)
	p.record("generate_stream", start, len(out), err)
	return out, err
}

func (p *auditedProvider) record(call string, start time.Time, outputLen int, err error) {
	details := map[string]interface{}{
		"call":        call,
		"duration_ms": time.Since(start).Milliseconds(),
		"output_len":  outputLen,
	}
	if err != nil {
		details["error"] = err.Error()
		p.log.Error("llm", "llm call failed", details)
		return
	}
	p.log.Info("llm", "llm call completed", details)
}

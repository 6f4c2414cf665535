// Command trace-generator exercises a running ingestion stack: it emits a
// small tree of spans with traceroot.* attributes over OTLP/HTTP protobuf.
//
// Usage:
//
//	TRACEROOT_ENDPOINT=localhost:8080 TRACEROOT_API_KEY=tr-... go run .
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	endpoint := getenv("TRACEROOT_ENDPOINT", "localhost:8080")
	apiKey := os.Getenv("TRACEROOT_API_KEY")
	if apiKey == "" {
		log.Fatal("TRACEROOT_API_KEY is required")
	}

	ctx := context.Background()
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithURLPath("/public/traces"),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	)
	if err != nil {
		log.Fatalf("build exporter: %v", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()
	otel.SetTracerProvider(tp)

	tracer := tp.Tracer("trace-generator")

	rootCtx, root := tracer.Start(ctx, "handle-chat-request",
		trace.WithAttributes(
			attribute.String("traceroot.span.type", "AGENT"),
			attribute.String("traceroot.environment", "staging"),
			attribute.String("traceroot.trace.user_id", "user-42"),
			attribute.String("traceroot.trace.session_id", "session-7"),
			attribute.String("traceroot.span.input", "summarize the incident report"),
		))

	_, llm := tracer.Start(rootCtx, "chat-completion",
		trace.WithAttributes(
			attribute.String("traceroot.span.type", "LLM"),
			attribute.String("traceroot.llm.model", "gpt-4o"),
			attribute.Float64("traceroot.cost", 0.0031),
		))
	time.Sleep(120 * time.Millisecond)
	llm.End()

	_, tool := tracer.Start(rootCtx, "search-docs",
		trace.WithAttributes(attribute.String("traceroot.span.type", "TOOL")))
	time.Sleep(40 * time.Millisecond)
	tool.SetStatus(codes.Error, "index unavailable")
	tool.End()

	root.SetAttributes(attribute.String("traceroot.span.output", "summary produced"))
	root.End()

	fmt.Printf("emitted trace %s\n", root.SpanContext().TraceID())
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Package observe はステージとパートのトレースを提供します。
// Init を呼ばない場合、otel のグローバルな no-op プロバイダーが使われます。
package observe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/shouni/go-ssml2wav"

// Config はトレースの出力設定です。
type Config struct {
	File        string // JSON形式のスパンを書き出すファイル。空の場合トレースは無効
	ServiceName string
}

// Tracer はパッケージ共通の trace.Tracer を返します。
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan は新しいスパンを開始します。呼び出し側で span.End() を呼んでください。
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Fail はスパンにエラーを記録します。err が nil の場合は何もしません。
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Init は stdouttrace エクスポーターでスパンを cfg.File に書き出すプロバイダーを登録します。
// 返される関数でバッファをフラッシュし、ファイルを閉じます。
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.File == "" {
		return func(context.Context) error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("トレース出力先ディレクトリの作成に失敗しました: %w", err)
	}
	f, err := os.Create(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("トレースファイルを作成できません (%s): %w", cfg.File, err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("トレースエクスポーターの初期化に失敗しました: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ssml2wav"
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), f.Close())
	}
	return shutdown, nil
}

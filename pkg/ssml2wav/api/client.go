package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"
)

// ----------------------------------------------------------------------
// クライアント構造体とコンストラクタ
// ----------------------------------------------------------------------

// Config は Azure Speech への接続設定です。
type Config struct {
	Key          string
	Region       string
	Endpoint     string // 指定時はリージョンから導出するホストの代わりに使う (例: https://myres.cognitiveservices.azure.com)
	OutputFormat string
	UserAgent    string
	Timeout      time.Duration
}

// BaseURL はリクエスト先のベースURLを返します。
func (c Config) BaseURL() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return fmt.Sprintf(regionHostTemplate, c.Region)
}

// Client は Azure Speech の REST API へのリクエストを処理するクライアントです。
// httpkit.Client の内部リトライは無効にし、1回の呼び出しで1回だけリクエストを送ります。
// 再試行は呼び出し側 (synth.Retry) が行います。
type Client struct {
	client *httpkit.Client
	cfg    Config
}

// NewClient は新しいClientインスタンスを初期化します。
func NewClient(cfg Config) *Client {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client: httpkit.New(cfg.Timeout, httpkit.WithMaxRetries(0)),
		cfg:    cfg,
	}
}

// OutputFormat はリクエストする音声形式の名前です。
func (c *Client) OutputFormat() string { return c.cfg.OutputFormat }

// ----------------------------------------------------------------------
// ヘルパー
// ----------------------------------------------------------------------

// buildURL はベースURLとエンドポイントを結合します。
func (c *Client) buildURL(endpoint string) (*url.URL, error) {
	u, err := url.Parse(c.cfg.BaseURL())
	if err != nil {
		return nil, &ErrAPIRequest{Endpoint: endpoint, WrappedErr: fmt.Errorf("API URLのパース失敗: %w", err)}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ErrAPIRequest{Endpoint: endpoint, WrappedErr: fmt.Errorf("API URLにスキームまたはホストがありません: %q", c.cfg.BaseURL())}
	}

	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return nil, &ErrAPIRequest{Endpoint: endpoint, WrappedErr: fmt.Errorf("エンドポイント結合失敗: %w", err)}
	}
	return u, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	u, err := c.buildURL(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &ErrAPIRequest{Endpoint: endpoint, WrappedErr: fmt.Errorf("リクエスト構築失敗: %w", err)}
	}
	req.Header.Set(headerSubscriptionKey, c.cfg.Key)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return req, nil
}

// ----------------------------------------------------------------------
// API呼び出しロジック
// ----------------------------------------------------------------------

// Synthesize はSSML文書1つを送信し、音声データ (既定ではRIFF WAV) を返します。
func (c *Client) Synthesize(ctx context.Context, ssml string) ([]byte, error) {
	const endpoint = SynthesisEndpoint

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentTypeSSML)
	req.Header.Set(headerOutputFormat, c.cfg.OutputFormat)

	// c.client.DoRequest() がステータスチェックとボディ読み取りを処理
	audioData, err := c.client.DoRequest(req)
	if err != nil {
		return nil, &ErrAPINetwork{Endpoint: endpoint, WrappedErr: err}
	}
	if len(audioData) == 0 {
		return nil, &ErrEmptyAudio{Endpoint: endpoint}
	}
	return audioData, nil
}

// ListVoices は voices/list APIを呼び出し、利用可能なボイス一覧 (JSONバイトスライス) を返します。
// キーとリージョンの組が有効かどうかの確認にも使います。
func (c *Client) ListVoices(ctx context.Context) ([]byte, error) {
	const endpoint = VoicesListEndpoint

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := c.client.DoRequest(req)
	if err != nil {
		return nil, &ErrAPINetwork{Endpoint: endpoint, WrappedErr: err}
	}
	return bodyBytes, nil
}

package voice

import (
	"context"
	"strings"
)

// ----------------------------------------------------------------------
// インターフェース定義
// ----------------------------------------------------------------------

// CatalogClient は voices/list エンドポイントを呼び出す能力を抽象化するインターフェースです。
// api.Client がこれを満たします。
type CatalogClient interface {
	ListVoices(ctx context.Context) ([]byte, error)
}

// ----------------------------------------------------------------------
// 構造体定義
// ----------------------------------------------------------------------

// AzureVoice は voices/list APIの応答JSON構造の一部に対応する型です。
type AzureVoice struct {
	Name            string   `json:"Name"`      // 例: "Microsoft Server Speech Text to Speech Voice (en-US, JennyNeural)"
	ShortName       string   `json:"ShortName"` // 例: "en-US-JennyNeural"
	DisplayName     string   `json:"DisplayName"`
	LocalName       string   `json:"LocalName"`
	Gender          string   `json:"Gender"`
	Locale          string   `json:"Locale"`
	SampleRateHertz string   `json:"SampleRateHertz"`
	VoiceType       string   `json:"VoiceType"`
	Status          string   `json:"Status"`
	StyleList       []string `json:"StyleList,omitempty"`
}

// Catalog はサービスから取得したボイス一覧です。名前の照合は大文字小文字を区別しません。
type Catalog struct {
	voices map[string]AzureVoice
}

func newCatalog() *Catalog {
	return &Catalog{voices: make(map[string]AzureVoice)}
}

func (c *Catalog) add(v AzureVoice) {
	c.voices[strings.ToLower(v.ShortName)] = v
	if v.Name != "" {
		c.voices[strings.ToLower(v.Name)] = v
	}
}

// Len は登録されているボイス (ShortName 単位) の数を返します。
func (c *Catalog) Len() int {
	seen := make(map[string]struct{}, len(c.voices))
	for _, v := range c.voices {
		seen[v.ShortName] = struct{}{}
	}
	return len(seen)
}

// Lookup は ShortName または完全名でボイスを検索します。
func (c *Catalog) Lookup(name string) (AzureVoice, bool) {
	v, ok := c.voices[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Has は name がカタログに存在するかを返します。
func (c *Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Missing は names のうちカタログに無いものを、重複を除いて出現順に返します。
// 空の名前は voice 要素に name 属性が無いことを示すため対象外です。
func (c *Catalog) Missing(names []string) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !c.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

package voice

import (
	"context"
	"encoding/json"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/api"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
)

// ----------------------------------------------------------------------
// ロードロジック
// ----------------------------------------------------------------------

// LoadCatalog は voices/list エンドポイントからデータを取得し、Catalog を構築します。
// キーやリージョンが誤っている場合はここで失敗するため、長いバッチ処理の前の疎通確認を兼ねます。
func LoadCatalog(ctx context.Context, client CatalogClient) (*Catalog, error) {
	// 1. API呼び出し
	bodyBytes, err := client.ListVoices(ctx)
	if err != nil {
		return nil, err
	}

	// 2. JSONデコード
	var voices []AzureVoice
	if err := json.Unmarshal(bodyBytes, &voices); err != nil {
		return nil, &api.ErrInvalidJSON{Details: api.VoicesListEndpoint + " 応答", WrappedErr: err}
	}

	// 3. データ構造の構築
	catalog := newCatalog()
	for _, v := range voices {
		if v.ShortName == "" {
			logger.L.Debugw("ShortName の無いボイスをスキップします", "name", v.Name)
			continue
		}
		if v.Status != "" && v.Status != StatusGA {
			logger.L.Debugw("一般提供前のボイスです", "voice", v.ShortName, "status", v.Status)
		}
		catalog.add(v)
	}

	if catalog.Len() == 0 {
		return nil, &ErrMissingRequiredField{Field: "ShortName", Context: loadContext}
	}

	logger.L.Infow("ボイス一覧が正常にロードされました", "voices_count", catalog.Len())
	return catalog, nil
}

package ssml

// ----------------------------------------------------------------------
// データモデル
// ----------------------------------------------------------------------

// Attr は開始タグ内の属性1つを表します。値はエンティティ展開せず、記述どおりに保持します。
type Attr struct {
	Name  string // 例: "xml:lang"
	Value string // 例: "ja-JP"
}

// Document は <speak> ルート要素1つを表す構造体です。
// OpenTag と CloseTag は元の文書の記述をそのまま保持し、
// 分割後の各パートでも名前空間や言語宣言が失われないようにします。
type Document struct {
	OpenTag  string // 例: `<speak version="1.0" xml:lang="ja-JP">`
	CloseTag string // 例: `</speak>`
	Attrs    []Attr
	Body     string // ルート要素の子コンテンツ (逐語的)
}

// String は文書を単体で合成可能なSSML文字列として返します。
func (d *Document) String() string {
	return d.OpenTag + d.Body + d.CloseTag
}

// Attr は指定した名前の属性値を返します。
func (d *Document) Attr(name string) (string, bool) {
	return lookupAttr(d.Attrs, name)
}

// Voice はルート直下の <voice> 要素1つです。内部は分割しません。
type Voice struct {
	Markup string // 開始タグから終了タグまでの完全な部分木
	Attrs  []Attr
}

// Name は voice 要素の name 属性 (合成音声名) を返します。
func (v Voice) Name() string {
	name, _ := lookupAttr(v.Attrs, "name")
	return name
}

// Part は分割された文書1つと、その1始まりの通し番号の組です。
type Part struct {
	Index      int
	Document   Document
	VoiceCount int
}

func lookupAttr(attrs []Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

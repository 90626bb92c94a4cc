package ssml

import (
	"slices"
	"strings"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
)

// ----------------------------------------------------------------------
// ルート要素の抽出
// ----------------------------------------------------------------------

// Extract は任意の前置き (BOM、XML宣言、コメント) を含むテキストから
// 最初の <speak> 要素を逐語的に切り出します。
// ルート要素が見つからない場合や終了タグを特定できない場合は *ErrStructural を返します。
func Extract(text string) (*Document, error) {
	src := strings.TrimPrefix(text, byteOrderMark)
	sc := newTagScanner(src)

	for {
		tok, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ErrStructural{Offset: -1, Details: "<speak> ルート要素が見つかりません"}
		}
		if !isElement(tok, RootTagName) {
			continue
		}

		openTag := src[tok.start:tok.end]
		doc := &Document{
			OpenTag: openTag,
			Attrs:   parseAttrs(openTag),
		}

		if tok.kind == tokenEmptyTag {
			// <speak/> は本文が空の開始・終了タグの組に正規化する
			head := strings.TrimRight(strings.TrimSuffix(openTag, ">"), " \t\r\n")
			doc.OpenTag = strings.TrimRight(strings.TrimSuffix(head, "/"), " \t\r\n") + ">"
			doc.CloseTag = "</" + tok.name + ">"
			return doc, nil
		}

		closeStart, closeEnd, err := matchClose(sc, tok.name)
		if err != nil {
			return nil, err
		}
		doc.Body = src[tok.end:closeStart]
		doc.CloseTag = src[closeStart:closeEnd]
		return doc, nil
	}
}

// ----------------------------------------------------------------------
// ボイス要素の走査
// ----------------------------------------------------------------------

// walkVoices はルート本文を走査し、直下の <voice> 要素ごとに fn を呼び出します。
// leading は直前の voice 要素 (または本文の先頭) からその要素までのパススルー内容です。
// 最後の voice 要素より後ろの内容を tail として返します。
func walkVoices(body string, fn func(leading string, v Voice)) (tail string, err error) {
	sc := newTagScanner(body)
	depth := 0
	last := 0

	for {
		tok, ok, err := sc.next()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}

		switch tok.kind {
		case tokenStartTag:
			if depth == 0 && isElement(tok, VoiceTagName) {
				_, closeEnd, err := matchClose(sc, tok.name)
				if err != nil {
					return "", err
				}
				fn(body[last:tok.start], Voice{
					Markup: body[tok.start:closeEnd],
					Attrs:  parseAttrs(body[tok.start:tok.end]),
				})
				last = closeEnd
				continue
			}
			depth++
		case tokenEndTag:
			// 閉じすぎた終了タグは無視する
			if depth > 0 {
				depth--
			}
		case tokenEmptyTag:
			if depth == 0 && isElement(tok, VoiceTagName) {
				fn(body[last:tok.start], Voice{
					Markup: body[tok.start:tok.end],
					Attrs:  parseAttrs(body[tok.start:tok.end]),
				})
				last = tok.end
			}
		}
	}
	return body[last:], nil
}

// Voices はルート直下の <voice> 要素を出現順に返します。
func Voices(doc *Document) ([]Voice, error) {
	var voices []Voice
	if _, err := walkVoices(doc.Body, func(_ string, v Voice) {
		voices = append(voices, v)
	}); err != nil {
		return nil, err
	}
	return voices, nil
}

// CountVoices はルート直下の <voice> 要素数を返します。
func CountVoices(doc *Document) (int, error) {
	voices, err := Voices(doc)
	if err != nil {
		return 0, err
	}
	return len(voices), nil
}

// ----------------------------------------------------------------------
// splitter 構造体
// ----------------------------------------------------------------------

// splitter は分割処理の状態を管理します。
type splitter struct {
	root      *Document
	maxVoices int

	parts   []Part
	current strings.Builder
	count   int
}

// Split は文書を最大 maxVoices 個の <voice> 要素を含むパートに分割します。
// 各パートは元のルート要素の開始タグと終了タグで包まれ、単体で合成できます。
//
// 最初の voice 要素より前の内容は最初のパートに、voice 要素間の内容は後続の
// 要素と同じパートに、最後の voice 要素より後ろの内容は最後のパートに含まれます。
// すべてのパートの本文を連結すると元の本文と一致します。
// voice 要素が1つも無い場合はパートを生成しません。
func Split(doc *Document, maxVoices int) ([]Part, error) {
	if maxVoices <= 0 {
		return nil, &ErrInvalidMaxVoices{Value: maxVoices}
	}

	s := &splitter{root: doc, maxVoices: maxVoices}
	tail, err := walkVoices(doc.Body, s.add)
	if err != nil {
		return nil, err
	}
	s.finish(tail)
	return s.parts, nil
}

// add は voice 要素1つを現在のグループに追加します。グループが上限に達していれば先に確定します。
func (s *splitter) add(leading string, v Voice) {
	if s.count == s.maxVoices {
		s.flush()
	}
	s.current.WriteString(leading)
	s.current.WriteString(v.Markup)
	s.count++
}

// flush は現在のグループを新しいパートとして確定し、バッファをリセットします。
func (s *splitter) flush() {
	s.parts = append(s.parts, Part{
		Index: len(s.parts) + 1,
		Document: Document{
			OpenTag:  s.root.OpenTag,
			CloseTag: s.root.CloseTag,
			Attrs:    slices.Clone(s.root.Attrs),
			Body:     s.current.String(),
		},
		VoiceCount: s.count,
	})
	s.current.Reset()
	s.count = 0
}

// finish は残りの内容を最後のグループに付けて確定します。
func (s *splitter) finish(tail string) {
	if s.count == 0 {
		if strings.TrimSpace(tail) != "" {
			logger.L.Warnw("<voice> 要素が見つかりませんでした。パートは生成されません。", "body_bytes", len(tail))
		}
		return
	}
	s.current.WriteString(tail)
	s.flush()
}

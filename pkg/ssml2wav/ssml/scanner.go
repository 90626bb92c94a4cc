package ssml

import "strings"

// ----------------------------------------------------------------------
// タグ境界スキャナ
// ----------------------------------------------------------------------

// 汎用のXMLパーサーは使わず、タグの境界だけを認識する小さな状態機械で走査します。
// 入力は逐語的に切り出す必要があるため、トークンは src 内の位置のみを保持します。

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenStartTag
	tokenEndTag
	tokenEmptyTag // 自己終了タグ <x/>
	tokenComment
	tokenProcInst
	tokenCDATA
	tokenDirective
)

type token struct {
	kind  tokenKind
	name  string
	start int // src 内の開始位置
	end   int // src 内の終了位置 (この位置は含まない)
}

// tagScanner はカーソル位置から順にトークンを切り出します。
type tagScanner struct {
	src string
	pos int
}

func newTagScanner(src string) *tagScanner {
	return &tagScanner{src: src}
}

// next は次のトークンを返します。入力の終端に達した場合 ok は false です。
func (s *tagScanner) next() (tok token, ok bool, err error) {
	if s.pos >= len(s.src) {
		return token{}, false, nil
	}

	start := s.pos
	if s.src[start] != '<' {
		return s.text(start), true, nil
	}

	rest := s.src[start:]
	switch {
	case strings.HasPrefix(rest, "<!--"):
		return s.until(start, 4, "-->", tokenComment, "コメントが閉じられていません")
	case strings.HasPrefix(rest, "<![CDATA["):
		return s.until(start, 9, "]]>", tokenCDATA, "CDATAセクションが閉じられていません")
	case strings.HasPrefix(rest, "<?"):
		return s.until(start, 2, "?>", tokenProcInst, "処理命令が閉じられていません")
	case strings.HasPrefix(rest, "<!"):
		return s.directive(start)
	case strings.HasPrefix(rest, "</"):
		return s.endTag(start)
	}
	return s.startTag(start)
}

func (s *tagScanner) text(start int) token {
	end := strings.IndexByte(s.src[start+1:], '<')
	if end < 0 {
		end = len(s.src)
	} else {
		end += start + 1
	}
	s.pos = end
	return token{kind: tokenText, start: start, end: end}
}

func (s *tagScanner) until(start, skip int, terminator string, kind tokenKind, details string) (token, bool, error) {
	idx := strings.Index(s.src[start+skip:], terminator)
	if idx < 0 {
		return token{}, false, &ErrStructural{Offset: start, Details: details}
	}
	end := start + skip + idx + len(terminator)
	s.pos = end
	return token{kind: kind, start: start, end: end}, true, nil
}

// directive は <!DOCTYPE ...> などを読み飛ばします。内部サブセット [...] の中の '>' は無視します。
func (s *tagScanner) directive(start int) (token, bool, error) {
	depth := 0
	var quote byte
	for i := start + 2; i < len(s.src); i++ {
		c := s.src[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == '>' && depth == 0:
			s.pos = i + 1
			return token{kind: tokenDirective, start: start, end: i + 1}, true, nil
		}
	}
	return token{}, false, &ErrStructural{Offset: start, Details: "宣言 <!...> が閉じられていません"}
}

func (s *tagScanner) endTag(start int) (token, bool, error) {
	i := skipSpace(s.src, start+2)
	nameStart := i
	i = skipName(s.src, i)
	name := s.src[nameStart:i]
	if name == "" {
		return token{}, false, &ErrStructural{Offset: start, Details: "終了タグに要素名がありません"}
	}

	idx := strings.IndexByte(s.src[i:], '>')
	if idx < 0 {
		return token{}, false, &ErrStructural{Offset: start, Details: "終了タグ </" + name + "> が閉じられていません"}
	}
	end := i + idx + 1
	s.pos = end
	return token{kind: tokenEndTag, name: name, start: start, end: end}, true, nil
}

func (s *tagScanner) startTag(start int) (token, bool, error) {
	i := skipSpace(s.src, start+1)
	nameStart := i
	i = skipName(s.src, i)
	name := s.src[nameStart:i]
	if name == "" {
		// 要素名の無い '<' はテキストとして扱う
		return s.text(start), true, nil
	}

	var quote byte
	for j := i; j < len(s.src); j++ {
		c := s.src[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			kind := tokenStartTag
			if strings.HasSuffix(strings.TrimRight(s.src[i:j], " \t\r\n"), "/") {
				kind = tokenEmptyTag
			}
			s.pos = j + 1
			return token{kind: kind, name: name, start: start, end: j + 1}, true, nil
		}
	}
	return token{}, false, &ErrStructural{Offset: start, Details: "開始タグ <" + name + "> が閉じられていません"}
}

// ----------------------------------------------------------------------
// 深さを考慮した対応タグ探索
// ----------------------------------------------------------------------

// matchClose は開始タグ直後のスキャナから、同名要素のネストの深さを数えながら
// 対応する終了タグを探します。スキャナは終了タグの直後まで進みます。
func matchClose(s *tagScanner, name string) (closeStart, closeEnd int, err error) {
	depth := 1
	for {
		tok, ok, err := s.next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			return 0, 0, &ErrStructural{Offset: -1, Details: "対応する </" + name + "> が見つかりません"}
		}
		if !strings.EqualFold(tok.name, name) {
			continue
		}
		switch tok.kind {
		case tokenStartTag:
			depth++
		case tokenEndTag:
			depth--
			if depth == 0 {
				return tok.start, tok.end, nil
			}
		}
	}
}

// isElement はトークンが指定した名前の開始タグ (自己終了タグを含む) かを判定します。
func isElement(tok token, name string) bool {
	return (tok.kind == tokenStartTag || tok.kind == tokenEmptyTag) && strings.EqualFold(tok.name, name)
}

// ----------------------------------------------------------------------
// 属性の解析
// ----------------------------------------------------------------------

// parseAttrs は開始タグ文字列から属性を記述順に取り出します。
func parseAttrs(tag string) []Attr {
	i := skipName(tag, skipSpace(tag, 1))

	var attrs []Attr
	for i < len(tag) {
		i = skipSpace(tag, i)
		if i >= len(tag) || tag[i] == '>' || tag[i] == '/' {
			break
		}

		nameStart := i
		i = skipName(tag, i)
		name := tag[nameStart:i]
		if name == "" {
			i++
			continue
		}

		i = skipSpace(tag, i)
		if i >= len(tag) || tag[i] != '=' {
			attrs = append(attrs, Attr{Name: name})
			continue
		}
		i = skipSpace(tag, i+1)
		if i >= len(tag) {
			break
		}

		quote := tag[i]
		if quote != '"' && quote != '\'' {
			valueStart := i
			for i < len(tag) && !isSpace(tag[i]) && tag[i] != '>' {
				i++
			}
			attrs = append(attrs, Attr{Name: name, Value: tag[valueStart:i]})
			continue
		}

		valueStart := i + 1
		end := strings.IndexByte(tag[valueStart:], quote)
		if end < 0 {
			attrs = append(attrs, Attr{Name: name, Value: tag[valueStart:]})
			break
		}
		attrs = append(attrs, Attr{Name: name, Value: tag[valueStart : valueStart+end]})
		i = valueStart + end + 1
	}
	return attrs
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func skipName(s string, i int) int {
	for i < len(s) && isNameChar(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == ':' || c == '-' || c == '.':
		return true
	}
	return c >= 0x80
}

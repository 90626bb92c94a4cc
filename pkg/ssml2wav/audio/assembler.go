package audio

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/fileutil"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/logger"
)

// Part はパート番号と、そのパートを合成したWAVファイルの組です。
type Part struct {
	Index int
	Path  string
}

// Final は結合済みの最終WAVファイルです。
type Final struct {
	Path     string
	Format   Format
	DataSize int64
	Parts    int
}

// Duration は最終WAVの再生時間です。
func (f *Final) Duration() time.Duration {
	return f.Format.Duration(f.DataSize)
}

// Assembler はパートごとのWAVをパート番号の昇順に連結します。
// 無音の挿入やクロスフェードは行わず、サンプルデータをそのまま連結します。
type Assembler struct {
	// Expected はすべてのパートに要求する形式です。nil の場合は最初のパートの形式を基準にします。
	Expected *Format
}

// NewAssembler は期待する形式を指定して Assembler を生成します。
func NewAssembler(expected Format) *Assembler {
	return &Assembler{Expected: &expected}
}

type openPart struct {
	Part
	file *os.File
	info *Info
}

// Assemble は parts を連結して outPath に書き込みます。
// 形式が異なるパートがあれば *ErrFormatMismatch を返し、outPath には何も書き込みません。
// パートが空の場合、Expected が指定されていればサンプルを含まない有効なWAVを書き込みます。
func (a *Assembler) Assemble(parts []Part, outPath string) (*Final, error) {
	ordered := append([]Part(nil), parts...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Index == ordered[i-1].Index {
			return nil, &ErrDuplicatePart{Index: ordered[i].Index}
		}
	}

	if len(ordered) == 0 && a.Expected == nil {
		return nil, ErrNoAudioData
	}

	opened := make([]openPart, 0, len(ordered))
	defer func() {
		for _, p := range opened {
			_ = p.file.Close()
		}
	}()

	// 1. すべてのパートのヘッダーを検証
	var want Format
	if a.Expected != nil {
		want = *a.Expected
	}
	var total int64
	for i, p := range ordered {
		f, err := os.Open(p.Path)
		if err != nil {
			return nil, fmt.Errorf("WAVパート #%d を開けません (%s): %w", p.Index, p.Path, err)
		}
		opened = append(opened, openPart{Part: p, file: f})

		st, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("WAVパート #%d の情報を取得できません (%s): %w", p.Index, p.Path, err)
		}
		info, err := ReadInfo(f, st.Size(), p.Index)
		if err != nil {
			return nil, err
		}
		opened[i].info = info

		if i == 0 && a.Expected == nil {
			want = info.Format
		}
		if !info.Format.Compatible(want) {
			return nil, &ErrFormatMismatch{Index: p.Index, Path: p.Path, Got: info.Format, Want: want}
		}
		total += info.DataSize
	}
	if total > maxDataSize {
		return nil, &ErrDataTooLarge{Size: total}
	}

	// 2. 新しいヘッダーに続けて data チャンク本体を順に書き込む
	err := fileutil.Write(outPath, 0644, func(w io.Writer) error {
		if err := WriteHeader(w, want, total); err != nil {
			return err
		}
		for _, p := range opened {
			n, err := io.Copy(w, io.NewSectionReader(p.file, p.info.DataOffset, p.info.DataSize))
			if err != nil {
				return fmt.Errorf("WAVパート #%d の連結に失敗しました: %w", p.Index, err)
			}
			if n != p.info.DataSize {
				return &ErrInvalidWAVHeader{Index: p.Index, Details: fmt.Sprintf("読み込めたデータ長 (%d) が data チャンクサイズ (%d) と一致しません", n, p.info.DataSize)}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	final := &Final{Path: outPath, Format: want, DataSize: total, Parts: len(opened)}
	logger.L.Infow("WAVの結合が完了しました",
		"path", outPath,
		"parts", final.Parts,
		"data_bytes", total,
		"duration", final.Duration())
	return final, nil
}
